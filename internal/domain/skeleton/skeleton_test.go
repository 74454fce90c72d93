package skeleton

import (
	"testing"

	"github.com/golang/geo/r3"
	"github.com/smartystreets/goconvey/convey"
)

func TestJointType(t *testing.T) {
	convey.Convey("Given the joint vocabulary", t, func() {
		convey.So(JointCount, convey.ShouldEqual, 20)
		convey.So(Head.String(), convey.ShouldEqual, "head")
		convey.So(WristRight.String(), convey.ShouldEqual, "wrist_right")
		convey.So(JointType(99).String(), convey.ShouldEqual, "unknown")

		j, ok := ParseJointType("shoulder_left")
		convey.So(ok, convey.ShouldBeTrue)
		convey.So(j, convey.ShouldEqual, ShoulderLeft)

		_, ok = ParseJointType("tail")
		convey.So(ok, convey.ShouldBeFalse)
	})
}

func TestJointTrackingState_Usable(t *testing.T) {
	convey.Convey("Inferred and Tracked joints are usable", t, func() {
		convey.So(JointTracked.Usable(), convey.ShouldBeTrue)
		convey.So(JointInferred.Usable(), convey.ShouldBeTrue)
		convey.So(JointNotTracked.Usable(), convey.ShouldBeFalse)
	})
}

func TestSkeleton_Joints(t *testing.T) {
	convey.Convey("Given an empty skeleton", t, func() {
		var s Skeleton

		convey.Convey("Then every joint reads as NotTracked", func() {
			convey.So(s.Joint(Head).State, convey.ShouldEqual, JointNotTracked)
		})

		convey.Convey("When a joint is set", func() {
			s.SetJoint(Head, r3.Vector{X: 0.1, Y: 0.5, Z: 2}, JointTracked)

			convey.Convey("Then it reads back", func() {
				convey.So(s.Joint(Head).Position.Z, convey.ShouldEqual, 2)
				convey.So(s.Joint(Head).State, convey.ShouldEqual, JointTracked)
			})
		})

		convey.Convey("When an out-of-range joint is used", func() {
			s.SetJoint(JointType(-1), r3.Vector{X: 1}, JointTracked)

			convey.Convey("Then it is ignored", func() {
				convey.So(s.Joint(JointType(-1)).State, convey.ShouldEqual, JointNotTracked)
			})
		})
	})
}

func TestFramePair(t *testing.T) {
	convey.Convey("Given a frame pair with both halves", t, func() {
		f := FramePair{
			Number: 3,
			Color:  &ColorImage{Width: 2, Height: 1, Pixels: make([]byte, 8)},
			Skeletons: []Skeleton{
				{TrackingID: 7, State: Tracked},
			},
		}

		convey.So(f.HasColor(), convey.ShouldBeTrue)
		convey.So(f.HasSkeletons(), convey.ShouldBeTrue)
		convey.So(f.Color.Valid(), convey.ShouldBeTrue)
		convey.So(f.Color.Stride(), convey.ShouldEqual, 8)

		convey.Convey("When it is cloned and the source mutated", func() {
			c := f.Clone()
			f.Color.Pixels[0] = 0xff
			f.Skeletons[0].TrackingID = 9

			convey.Convey("Then the clone is unaffected", func() {
				convey.So(c.Color.Pixels[0], convey.ShouldEqual, 0)
				convey.So(c.Skeletons[0].TrackingID, convey.ShouldEqual, 7)
				convey.So(c.Number, convey.ShouldEqual, 3)
			})
		})

		convey.Convey("When the skeleton half is missing", func() {
			f.Skeletons = nil
			convey.So(f.HasSkeletons(), convey.ShouldBeFalse)
			convey.So(f.Clone().Skeletons, convey.ShouldBeNil)
		})

		convey.Convey("When the subject list is empty but present", func() {
			f.Skeletons = []Skeleton{}
			convey.So(f.HasSkeletons(), convey.ShouldBeTrue)
		})

		convey.Convey("When the pixel buffer is short", func() {
			f.Color.Pixels = f.Color.Pixels[:4]
			convey.So(f.Color.Valid(), convey.ShouldBeFalse)
		})
	})
}
