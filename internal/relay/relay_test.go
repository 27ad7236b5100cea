package relay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wx-endec/eas-listener/internal/filter"
)

func TestNew_RejectsEnabledWithoutDestURL(t *testing.T) {
	_, err := New(Config{Enabled: true})
	assert.Error(t, err)
}

func TestNew_AllowsDisabledWithoutDestURL(t *testing.T) {
	m, err := New(Config{Enabled: false})
	require.NoError(t, err)
	assert.NotNil(t, m)
}

func TestStart_SkipsWhenDisabled(t *testing.T) {
	m, err := New(Config{Enabled: false})
	require.NoError(t, err)

	err = m.Start(context.Background(), "TOR", "/nonexistent/recording.ogg", "wx1")
	assert.NoError(t, err)
}

func TestStart_SkipsOnIgnoreOrLogFilterAction(t *testing.T) {
	m, err := New(Config{
		Enabled: true,
		DestURL: "http://relay.example/mount",
		FilterRules: []filter.Rule{
			{Name: "test-events", Pattern: "RWT", Action: filter.ActionIgnore},
		},
	})
	require.NoError(t, err)

	err = m.Start(context.Background(), "RWT", "/nonexistent/recording.ogg", "wx1")
	assert.NoError(t, err)
}
