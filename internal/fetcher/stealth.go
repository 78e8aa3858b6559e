package fetcher

import (
	"fmt"
	"math/rand"
	"strings"
)

// StealthConfig describes the browser fingerprint presented by the stealth tier.
type StealthConfig struct {
	ViewportWidth  int
	ViewportHeight int

	// WindowSize is passed to Chromium as --window-size.
	WindowSize string

	Languages           []string
	Platform            string
	HardwareConcurrency int
	DeviceMemory        int
	Vendor              string
}

var desktopViewports = []struct{ w, h int }{
	{1920, 1080}, {1366, 768}, {1536, 864}, {1440, 900}, {1280, 800},
}

// DefaultStealthConfig returns a randomized desktop Mac fingerprint, matching
// the default User-Agent.
func DefaultStealthConfig() *StealthConfig {
	vp := desktopViewports[rand.Intn(len(desktopViewports))]
	return &StealthConfig{
		ViewportWidth:       vp.w,
		ViewportHeight:      vp.h,
		WindowSize:          fmt.Sprintf("%d,%d", vp.w, vp.h),
		Languages:           []string{"en-US", "en"},
		Platform:            "MacIntel",
		HardwareConcurrency: 4 + 2*rand.Intn(5), // 4-12 cores
		DeviceMemory:        8,
		Vendor:              "Google Inc.",
	}
}

// StealthJS returns the script evaluated on every new document before page
// scripts run. It hides the webdriver flag, fakes a plugin list and the
// chrome runtime object, and pins navigator properties to the config.
func (sc *StealthConfig) StealthJS() string {
	langs := make([]string, len(sc.Languages))
	for i, l := range sc.Languages {
		langs[i] = fmt.Sprintf("'%s'", l)
	}
	primary := "en-US"
	if len(sc.Languages) > 0 {
		primary = sc.Languages[0]
	}

	return fmt.Sprintf(`(() => {
  const define = (obj, prop, value) => {
    try { Object.defineProperty(obj, prop, { get: () => value, configurable: true }); } catch (e) {}
  };

  define(Navigator.prototype, 'webdriver', undefined);
  define(navigator, 'platform', '%s');
  define(navigator, 'vendor', '%s');
  define(navigator, 'language', '%s');
  define(navigator, 'languages', [%s]);
  define(navigator, 'hardwareConcurrency', %d);
  define(navigator, 'deviceMemory', %d);

  const fakePlugins = [
    { name: 'PDF Viewer', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
    { name: 'Chrome PDF Viewer', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
    { name: 'Chromium PDF Viewer', filename: 'internal-pdf-viewer', description: 'Portable Document Format' },
  ];
  define(navigator, 'plugins', Object.assign(fakePlugins, { item: (i) => fakePlugins[i], namedItem: () => null }));
  define(navigator, 'mimeTypes', [{ type: 'application/pdf', suffixes: 'pdf' }]);

  if (!window.chrome) {
    window.chrome = {};
  }
  window.chrome.runtime = window.chrome.runtime || { connect: () => {}, sendMessage: () => {} };
  window.chrome.loadTimes = window.chrome.loadTimes || (() => ({}));
  window.chrome.csi = window.chrome.csi || (() => ({}));

  if (navigator.permissions && navigator.permissions.query) {
    const query = navigator.permissions.query.bind(navigator.permissions);
    navigator.permissions.query = (p) => p && p.name === 'notifications'
      ? Promise.resolve({ state: Notification.permission })
      : query(p);
  }

  define(screen, 'width', %d);
  define(screen, 'height', %d);
})();`,
		sc.Platform, sc.Vendor, primary, strings.Join(langs, ", "),
		sc.HardwareConcurrency, sc.DeviceMemory,
		sc.ViewportWidth, sc.ViewportHeight)
}
