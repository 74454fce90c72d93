package debounce

import (
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/posture/internal/domain/posture"
)

func TestMachine_Observe(t *testing.T) {
	convey.Convey("Given a fresh machine", t, func() {
		m := New()

		convey.Convey("Then every key starts Off", func() {
			convey.So(m.On(0), convey.ShouldBeFalse)
			convey.So(m.Len(), convey.ShouldEqual, 0)
		})

		convey.Convey("When PostureB arrives while Off", func() {
			_, fired := m.Observe(0, posture.PostureB)

			convey.Convey("Then nothing fires", func() {
				convey.So(fired, convey.ShouldBeFalse)
				convey.So(m.On(0), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When PostureA arrives while Off", func() {
			tr, fired := m.Observe(0, posture.PostureA)

			convey.Convey("Then the key enters", func() {
				convey.So(fired, convey.ShouldBeTrue)
				convey.So(tr, convey.ShouldResemble, Transition{Key: 0, Kind: Entered})
				convey.So(m.On(0), convey.ShouldBeTrue)
			})

			convey.Convey("And repeated PostureA fires nothing", func() {
				for i := 0; i < 5; i++ {
					_, fired := m.Observe(0, posture.PostureA)
					convey.So(fired, convey.ShouldBeFalse)
				}
				convey.So(m.On(0), convey.ShouldBeTrue)
			})

			convey.Convey("And PostureB exits", func() {
				tr, fired := m.Observe(0, posture.PostureB)
				convey.So(fired, convey.ShouldBeTrue)
				convey.So(tr.Kind, convey.ShouldEqual, Exited)
				convey.So(tr.Kind.String(), convey.ShouldEqual, "exited")
			})
		})

		convey.Convey("When an undetermined verdict arrives", func() {
			m.Observe(0, posture.PostureA)
			_, fired := m.Observe(0, posture.Undetermined)

			convey.Convey("Then the state is unchanged", func() {
				convey.So(fired, convey.ShouldBeFalse)
				convey.So(m.On(0), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When verdicts alternate", func() {
			seq := []posture.Outcome{
				posture.PostureB, posture.PostureA, posture.PostureA, posture.PostureB,
				posture.PostureB, posture.PostureA, posture.PostureB, posture.PostureA,
			}
			var kinds []Kind
			for _, o := range seq {
				if tr, fired := m.Observe(0, o); fired {
					kinds = append(kinds, tr.Kind)
				}
			}

			convey.Convey("Then transitions strictly alternate starting with entered", func() {
				convey.So(kinds, convey.ShouldResemble, []Kind{Entered, Exited, Entered, Exited, Entered})
			})
		})

		convey.Convey("When two keys are observed", func() {
			m.Observe(1, posture.PostureA)
			m.Observe(2, posture.PostureB)

			convey.Convey("Then their states are independent", func() {
				convey.So(m.States(), convey.ShouldResemble, []State{{Key: 1, On: true}, {Key: 2, On: false}})
			})
		})
	})
}

func TestMachine_Capacity(t *testing.T) {
	convey.Convey("Given a machine bounded to two keys", t, func() {
		m := New(WithCapacity(2))
		m.Observe(10, posture.PostureA)
		m.Observe(20, posture.PostureA)
		m.Observe(10, posture.PostureB)

		convey.Convey("When a third key arrives", func() {
			m.Observe(30, posture.PostureB)

			convey.Convey("Then the Off key is dropped before any On key", func() {
				convey.So(m.Len(), convey.ShouldEqual, 2)
				convey.So(m.States(), convey.ShouldResemble, []State{{Key: 20, On: true}, {Key: 30}})
				convey.So(m.TakeEvicted(), convey.ShouldBeEmpty)
			})
		})
	})

	convey.Convey("Given a machine bounded to two keys that are both On", t, func() {
		m := New(WithCapacity(2))
		m.Observe(10, posture.PostureA)
		m.Observe(20, posture.PostureA)

		convey.Convey("When a third key arrives", func() {
			_, fired := m.Observe(30, posture.PostureB)

			convey.Convey("Then the least recently observed On key exits", func() {
				convey.So(fired, convey.ShouldBeFalse)
				convey.So(m.On(10), convey.ShouldBeFalse)
				convey.So(m.States(), convey.ShouldResemble, []State{{Key: 20, On: true}, {Key: 30}})
				convey.So(m.TakeEvicted(), convey.ShouldResemble, []Transition{{Key: 10, Kind: Exited}})
				convey.So(m.TakeEvicted(), convey.ShouldBeEmpty)
			})
		})
	})

	convey.Convey("Given a single On key and a stream of new keys at capacity", t, func() {
		m := New(WithCapacity(4))
		m.Observe(100, posture.PostureA)
		for k := 200; k <= 205; k++ {
			m.Observe(k, posture.PostureB)
		}

		convey.Convey("Then the On key survives while Off keys rotate", func() {
			convey.So(m.On(100), convey.ShouldBeTrue)
			convey.So(m.Len(), convey.ShouldEqual, 4)
			convey.So(m.TakeEvicted(), convey.ShouldBeEmpty)
		})
	})
}

func TestMachine_Reset(t *testing.T) {
	convey.Convey("Given keys in mixed states", t, func() {
		m := New()
		m.Observe(0, posture.PostureA)
		m.Observe(1, posture.PostureB)
		m.Observe(2, posture.PostureA)

		convey.Convey("When an On key is reset", func() {
			tr, fired := m.Reset(0)

			convey.Convey("Then an exit is reported", func() {
				convey.So(fired, convey.ShouldBeTrue)
				convey.So(tr, convey.ShouldResemble, Transition{Key: 0, Kind: Exited})
				convey.So(m.On(0), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When an Off or unknown key is reset", func() {
			_, fired := m.Reset(1)
			convey.So(fired, convey.ShouldBeFalse)
			_, fired = m.Reset(42)
			convey.So(fired, convey.ShouldBeFalse)
		})

		convey.Convey("When only key 1 is retained", func() {
			trs := m.Retain(map[int]struct{}{1: {}})

			convey.Convey("Then exits are returned in key order", func() {
				convey.So(trs, convey.ShouldResemble, []Transition{{Key: 0, Kind: Exited}, {Key: 2, Kind: Exited}})
				convey.So(m.Len(), convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When everything is reset", func() {
			trs := m.ResetAll()

			convey.Convey("Then the machine is empty", func() {
				convey.So(trs, convey.ShouldHaveLength, 2)
				convey.So(m.Len(), convey.ShouldEqual, 0)
			})
		})
	})
}
