package webhook

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wx-endec/eas-listener/internal/eas"
)

func testAlert() eas.Alert {
	return eas.Alert{
		Data: eas.Data{
			EventText: "Tornado Warning",
			EventCode: "TOR",
			EASText:   "Tornado Warning issued for the area",
		},
		RawHeader:  "ZCZC-WXR-TOR-006037+0030-2130415-KXYZ/NWS-",
		ReceivedAt: time.Date(2026, 7, 31, 14, 5, 0, 0, time.UTC),
	}
}

func TestEmbedColor_ClassifiesByKeyword(t *testing.T) {
	assert.Equal(t, 0xe74c3c, embedColor("Tornado Warning"))
	assert.Equal(t, 0xf1c40f, embedColor("Severe Thunderstorm Watch"))
	assert.Equal(t, 0x1abc9c, embedColor("Required Weekly Test"))
	assert.Equal(t, 0x95a5a6, embedColor("Some Unrecognized Event"))
}

func TestBuildMarkdownBody_IncludesCoreFields(t *testing.T) {
	body := buildMarkdownBody("wx1", testAlert(), Config{MonitorLabel: "Monitor 1", FilterName: "Default Filter"})
	assert.Contains(t, body, "Tornado Warning")
	assert.Contains(t, body, "wx1")
	assert.Contains(t, body, "Monitor 1")
	assert.Contains(t, body, "ZCZC-WXR-TOR-006037+0030-2130415-KXYZ/NWS-")
}

func TestBuildHTMLBody_EscapesContent(t *testing.T) {
	a := testAlert()
	a.Data.EASText = "<script>alert(1)</script>"
	body := buildHTMLBody("wx1", a, Config{})
	assert.NotContains(t, body, "<script>alert(1)</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestBuildDiscordEmbed_ProducesValidJSONShape(t *testing.T) {
	body := buildDiscordEmbed("wx1", testAlert(), Config{MonitorLabel: "Monitor 1", FilterName: "Default Filter"})
	assert.Contains(t, body, `"embeds"`)
	assert.Contains(t, body, `"color"`)
}
