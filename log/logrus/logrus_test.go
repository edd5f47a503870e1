package logrus

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/unkn0wn-root/rkv"
)

func TestFieldsAndErrors(t *testing.T) {
	base, hook := test.NewNullLogger()
	base.SetLevel(logrus.DebugLevel)
	l := New(base)

	l.Debug("lock acquired", rkv.Fields{"key": "jobs", "attempts": 2})
	l.Error("pipeline flush failed", rkv.Fields{"commands": 4, "err": errors.New("broken pipe")})

	entries := hook.AllEntries()
	if len(entries) != 2 {
		t.Fatalf("got %d entries", len(entries))
	}
	if e := entries[0]; e.Level != logrus.DebugLevel || e.Data["key"] != "jobs" || e.Data["component"] != "rkv" {
		t.Fatalf("debug entry = %+v", e.Data)
	}
	e := entries[1]
	if err, _ := e.Data[logrus.ErrorKey].(error); err == nil || err.Error() != "broken pipe" {
		t.Fatalf("error not attached: %+v", e.Data)
	}
	if e.Data["commands"] != 4 {
		t.Fatalf("fields lost: %+v", e.Data)
	}
}
