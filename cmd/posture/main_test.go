package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/posture/internal/config"
	"github.com/okian/posture/internal/replay"
	"github.com/okian/posture/pkg/logger"
)

func execute(args ...string) (string, error) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	convey.Convey("Given the version command", t, func() {
		out, err := execute("version")

		convey.Convey("Then it prints the build version", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual, "posture version dev\n")
		})
	})
}

func TestReplayCommand(t *testing.T) {
	convey.Convey("Given a local synthetic replay", t, func() {
		out, err := execute("replay", "--local", "--generate", "8", "--period", "2", "--interval", "0")
		convey.So(err, convey.ShouldBeNil)

		var report replayReport
		convey.So(json.Unmarshal([]byte(out), &report), convey.ShouldBeNil)

		convey.Convey("Then every frame is sent and transitions are reported oldest first", func() {
			convey.So(report.Sent, convey.ShouldEqual, 8)
			convey.So(report.Dropped, convey.ShouldEqual, 0)
			convey.So(report.Transitions, convey.ShouldHaveLength, 3)
			kinds := []string{report.Transitions[0].Kind, report.Transitions[1].Kind, report.Transitions[2].Kind}
			convey.So(kinds, convey.ShouldResemble, []string{"entered", "exited", "entered"})
			convey.So(report.Transitions[0].Frame, convey.ShouldEqual, 3)
			convey.So(report.Transitions[1].Frame, convey.ShouldEqual, 5)
		})
	})

	convey.Convey("Given no recording and no --generate", t, func() {
		_, err := execute("replay", "--local")

		convey.Convey("Then the command fails", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})

	convey.Convey("Given an invalid environment override", t, func() {
		_ = os.Setenv("POSTURE_X_AXIS", "sideways")
		defer func() { _ = os.Unsetenv("POSTURE_X_AXIS") }()

		_, err := execute("replay", "--local", "--generate", "2")

		convey.Convey("Then config loading fails before anything runs", func() {
			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "failed to load config")
		})
	})
}

func TestReplayOverHTTP(t *testing.T) {
	convey.Convey("Given a running service behind the HTTP API", t, func() {
		if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
			t.Fatal(err)
		}
		c := &cli{cfg: config.New(), log: logger.Get()}
		svc, err := c.newService()
		convey.So(err, convey.ShouldBeNil)
		ctx := context.Background()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newMux(ctx, svc))
		defer srv.Close()

		rec := replay.Generate(4, 2, 0)
		data, err := rec.Marshal()
		convey.So(err, convey.ShouldBeNil)
		path := filepath.Join(t.TempDir(), "rec.yaml")
		convey.So(os.WriteFile(path, data, 0o600), convey.ShouldBeNil)

		convey.Convey("When the recording is replayed to the service URL", func() {
			out, err := execute("replay", path, "--url", srv.URL)
			convey.So(err, convey.ShouldBeNil)

			var report replayReport
			convey.So(json.Unmarshal([]byte(out), &report), convey.ShouldBeNil)

			convey.Convey("Then the service processes every frame", func() {
				convey.So(report.Sent, convey.ShouldEqual, 4)
				convey.So(report.Session, convey.ShouldEqual, rec.Session)
				convey.So(waitProcessed(ctx, svc, 4), convey.ShouldBeNil)

				trs, err := svc.Transitions(ctx, 10)
				convey.So(err, convey.ShouldBeNil)
				convey.So(trs, convey.ShouldHaveLength, 1)
				convey.So(trs[0].Kind, convey.ShouldEqual, "entered")
			})
		})
	})
}

// lossyTransport drops the response to the first request once the service has
// already handled it.
type lossyTransport struct {
	calls int
}

func (l *lossyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := http.DefaultTransport.RoundTrip(req)
	l.calls++
	if err == nil && l.calls == 1 {
		_ = resp.Body.Close()
		return nil, errors.New("connection reset by peer")
	}
	return resp, err
}

func TestReplayRedelivery(t *testing.T) {
	convey.Convey("Given a running service behind a connection that loses one response", t, func() {
		if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
			t.Fatal(err)
		}
		c := &cli{cfg: config.New(), log: logger.Get()}
		svc, err := c.newService()
		convey.So(err, convey.ShouldBeNil)
		ctx := context.Background()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()

		srv := httptest.NewServer(newMux(ctx, svc))
		defer srv.Close()

		transport := &lossyTransport{}
		sink := replay.NewHTTPSink(srv.URL, &http.Client{Transport: transport})

		convey.Convey("When a recording is replayed", func() {
			stats, err := replay.NewPlayer(sink).Play(ctx, replay.Generate(4, 2, 0))
			convey.So(err, convey.ShouldBeNil)
			convey.So(waitProcessed(ctx, svc, 4), convey.ShouldBeNil)

			convey.Convey("Then the resent frame is recognized and processed once", func() {
				convey.So(stats.Sent, convey.ShouldEqual, 4)
				convey.So(stats.Failed, convey.ShouldEqual, 0)
				convey.So(transport.calls, convey.ShouldEqual, 5)

				st := svc.GetStats()
				convey.So(st.FramesAccepted, convey.ShouldEqual, 4)
				convey.So(st.DuplicateFrames, convey.ShouldEqual, 1)
				convey.So(st.FramesProcessed, convey.ShouldEqual, 4)
			})
		})
	})
}

func TestMux(t *testing.T) {
	convey.Convey("Given the serve mux", t, func() {
		if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
			t.Fatal(err)
		}
		c := &cli{cfg: config.New(), log: logger.Get()}
		svc, err := c.newService()
		convey.So(err, convey.ShouldBeNil)
		ctx := context.Background()
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		mux := newMux(ctx, svc)

		get := func(path string) int {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			return rec.Code
		}

		convey.Convey("Then the API and the OpenAPI document are routed", func() {
			convey.So(get("/healthz"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/stats"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/openapi.yaml"), convey.ShouldEqual, http.StatusOK)
			convey.So(get("/transitions"), convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then state is not found before the first frame", func() {
			convey.So(get("/state"), convey.ShouldEqual, http.StatusNotFound)
		})
	})
}
