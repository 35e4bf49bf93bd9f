package toast

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestToastAutoDismiss(t *testing.T) {
	c := NewCenter(20*time.Millisecond, func() string { return "en" })
	defer c.Close()

	c.Error("errorNetworkError")

	active := c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, LevelError, active[0].Level)
	assert.Equal(t, "Network error: Unable to connect to image server", active[0].Text)

	assert.Eventually(t, func() bool { return len(c.Active()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestToastLocalized(t *testing.T) {
	lang := "ru"
	c := NewCenter(time.Minute, func() string { return lang })
	defer c.Close()

	c.Info("settingsSaved")
	lang = "en"
	c.Info("settingsSaved")
	c.Info("noSuchKey")

	active := c.Active()
	require.Len(t, active, 3)
	assert.NotEqual(t, active[0].Text, active[1].Text)
	assert.Equal(t, "Settings saved successfully", active[1].Text)
	assert.Equal(t, "[Missing: noSuchKey]", active[2].Text)
	assert.Equal(t, "info", active[0].Level.String())
}

func TestToastDismissAndOnChange(t *testing.T) {
	c := NewCenter(time.Minute, nil)
	defer c.Close()

	changes := 0
	c.OnChange(func() { changes++ })

	c.Info("cacheCleared")
	c.Error("errorFailedToClearCache")
	active := c.Active()
	require.Len(t, active, 2)

	c.Dismiss(active[0].ID)
	c.Dismiss(9999)

	active = c.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "errorFailedToClearCache", active[0].Key)
	assert.Equal(t, 3, changes)
}

func TestToastClosed(t *testing.T) {
	c := NewCenter(time.Minute, nil)
	c.Info("settingsSaved")
	c.Close()

	c.Info("settingsSaved")
	assert.Empty(t, c.Active())
}
