package janitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wx-endec/eas-listener/internal/eas"
)

type fakeNotifier struct {
	calls int
	last  []eas.Alert
}

func (f *fakeNotifier) AlertsChanged(snapshot []eas.Alert) {
	f.calls++
	f.last = snapshot
}

func TestForceCheck_RemovesExpiredAndNotifies(t *testing.T) {
	set := eas.NewActiveSet()
	// The fresh alert goes in first: Upsert itself drops already-expired
	// entries, so the expired one must be the last inserted to survive
	// until ForceCheck.
	set.Upsert(eas.Alert{
		RawHeader: "ZCZC-WXR-SVA-006037+0030-2130415-KXYZ/NWS-",
		ExpiresAt: time.Now().Add(time.Hour),
	})
	set.Upsert(eas.Alert{
		RawHeader: "ZCZC-WXR-TOR-006037+0001-2130415-KXYZ/NWS-",
		ExpiresAt: time.Now().Add(-time.Minute),
	})

	dir := t.TempDir()
	notifier := &fakeNotifier{}
	j := New(set, dir, notifier)

	j.ForceCheck()

	require.Equal(t, 1, notifier.calls)
	assert.Len(t, notifier.last, 1)
	assert.Equal(t, "ZCZC-WXR-SVA-006037+0030-2130415-KXYZ/NWS-", notifier.last[0].RawHeader)
}

func TestForceCheck_NoRemovalSkipsNotify(t *testing.T) {
	set := eas.NewActiveSet()
	set.Upsert(eas.Alert{
		RawHeader: "ZCZC-WXR-SVA-006037+0030-2130415-KXYZ/NWS-",
		ExpiresAt: time.Now().Add(time.Hour),
	})

	notifier := &fakeNotifier{}
	j := New(set, t.TempDir(), notifier)
	j.ForceCheck()

	assert.Equal(t, 0, notifier.calls)
}
