package cli

import (
	"errors"
	"pippin/pkg/apperr"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInspectPrintsCompactJSON(t *testing.T) {
	h := newHarness()

	code := h.execute("inspect", "--depth", "2", "--device", "AAA")

	require.Equal(t, apperr.ExitSuccess, code)
	require.Equal(t, `{"app":"com.example.Demo","screen_id":"Login","elements":[{"type":"button","id":"submit","label":"Sign In","frame":"10,700,355,44"}]}`+"\n", h.stdout.String())
	require.Empty(t, h.stderr.String())
	require.True(t, h.rec.inspect.InteractiveOnly)
	require.Equal(t, 2, *h.rec.inspect.MaxDepth)
	require.Equal(t, "AAA", h.overrides.Device)
}

func TestInspectAllFlatWithoutDepth(t *testing.T) {
	h := newHarness()

	require.Equal(t, apperr.ExitSuccess, h.execute("inspect", "--all", "--flat"))
	require.False(t, h.rec.inspect.InteractiveOnly)
	require.True(t, h.rec.inspect.Flat)
	require.Nil(t, h.rec.inspect.MaxDepth)
}

func TestYAMLFormat(t *testing.T) {
	h := newHarness()

	require.Equal(t, apperr.ExitSuccess, h.execute("--format", "yaml", "tap", "Sign In"))
	require.Equal(t, "status: success\naction: tap\ntarget: 60,45\n", h.stdout.String())
}

func TestUnknownFormatIsInvalidArgs(t *testing.T) {
	h := newHarness()

	code := h.execute("--format", "xml", "inspect")

	require.Equal(t, apperr.ExitInvalidArgs, code)
	require.Contains(t, h.stderr.String(), "FAIL: ERR_INVALID_ARGS: unsupported format")
	require.Zero(t, h.runs)
}

func TestContextIsIndented(t *testing.T) {
	h := newHarness()

	require.Equal(t, apperr.ExitSuccess, h.execute("context", "--brief"))
	require.Contains(t, h.stdout.String(), "{\n  \"app\": {\n    \"bundle_id\": \"com.example.Demo\"")
}

func TestTapArguments(t *testing.T) {
	t.Run("query words are joined", func(t *testing.T) {
		h := newHarness()

		require.Equal(t, apperr.ExitSuccess, h.execute("tap", "Sign", "In", "--strict"))
		require.Equal(t, "Sign In", h.rec.tap.Query)
		require.True(t, h.rec.tap.Strict)
		require.Nil(t, h.rec.tap.X)
	})

	t.Run("two numbers are coordinates", func(t *testing.T) {
		h := newHarness()

		require.Equal(t, apperr.ExitSuccess, h.execute("tap", "100", "200.5"))
		require.Empty(t, h.rec.tap.Query)
		require.Equal(t, 100.0, *h.rec.tap.X)
		require.Equal(t, 200.5, *h.rec.tap.Y)
	})

	t.Run("fallback coordinate flags", func(t *testing.T) {
		h := newHarness()

		require.Equal(t, apperr.ExitSuccess, h.execute("tap", "Login", "--x", "5", "--y", "7"))
		require.Equal(t, "Login", h.rec.tap.Query)
		require.Equal(t, 5.0, *h.rec.tap.X)
		require.Equal(t, 7.0, *h.rec.tap.Y)
	})

	t.Run("single fallback flag is ignored", func(t *testing.T) {
		h := newHarness()

		require.Equal(t, apperr.ExitSuccess, h.execute("tap", "Login", "--x", "5"))
		require.Nil(t, h.rec.tap.X)
	})
}

func TestServiceErrorsMapToExitCodes(t *testing.T) {
	h := newHarness()
	h.rec.err = notFound("Element 'Nope' not found")

	code := h.execute("tap", "Nope")

	require.Equal(t, apperr.ExitElementNotFound, code)
	require.Equal(t, "FAIL: ERR_ELEMENT_NOT_FOUND: Element 'Nope' not found\n", h.stderr.String())
	require.Empty(t, h.stdout.String())
}

func TestTimeoutExitCode(t *testing.T) {
	h := newHarness()
	h.rec.err = apperr.WrapErrorWithReason("Wait", apperr.CodeTimeout, "Timed out after 1s waiting for 'x' to be visible")

	require.Equal(t, apperr.ExitTimeout, h.execute("wait", "x", "--timeout", "1"))
	require.Contains(t, h.stderr.String(), "FAIL: ERR_TIMEOUT: ")
}

func TestUnclassifiedRuntimeErrorIsCommandFailed(t *testing.T) {
	h := newHarness()
	h.rec.err = errors.New("boom")

	require.Equal(t, apperr.ExitCommandFailed, h.execute("assert", "x", "exists"))
	require.Equal(t, "FAIL: ERR_COMMAND_FAILED: boom\n", h.stderr.String())
}

func TestUsageErrorsAreInvalidArgs(t *testing.T) {
	for name, args := range map[string][]string{
		"missing argument": {"assert", "only-query"},
		"unknown flag":     {"inspect", "--bogus"},
		"unknown command":  {"fly"},
		"bad latitude":     {"location", "north", "10"},
		"negative depth":   {"inspect", "--depth", "-1"},
		"negative timeout": {"wait", "x", "--timeout", "-2"},
		"open quote":       {"launch", "com.example.Demo", "--args", `-name "unterminated`},
	} {
		t.Run(name, func(t *testing.T) {
			h := newHarness()

			require.Equal(t, apperr.ExitInvalidArgs, h.execute(args...))
			require.Contains(t, h.stderr.String(), "FAIL: ERR_INVALID_ARGS: ")
			require.Zero(t, h.runs)
		})
	}
}

func TestWaitFlags(t *testing.T) {
	h := newHarness()

	require.Equal(t, apperr.ExitSuccess, h.execute("wait", "Welcome", "--state", "exists", "--timeout", "2.5", "--strict", "--scroll"))
	require.Equal(t, "Welcome", h.rec.wait.Query)
	require.Equal(t, "exists", h.rec.wait.State)
	require.Equal(t, 2500*time.Millisecond, h.rec.wait.Timeout)
	require.True(t, h.rec.wait.Strict)
	require.True(t, h.rec.wait.Scroll)

	h = newHarness()
	require.Equal(t, apperr.ExitSuccess, h.execute("wait", "Welcome"))
	require.Equal(t, "visible", h.rec.wait.State)
	require.Equal(t, 10*time.Second, h.rec.wait.Timeout)
}

func TestLaunchFlags(t *testing.T) {
	h := newHarness()

	code := h.execute("launch", "com.example.Demo", "--clean", "--locale", "es_MX", "--args", `-TakingScreenshots YES -name "Jane Doe"`)

	require.Equal(t, apperr.ExitSuccess, code)
	require.Equal(t, "com.example.Demo", h.rec.launch.BundleID)
	require.True(t, h.rec.launch.Clean)
	require.Equal(t, "es_MX", h.rec.launch.Locale)
	require.Equal(t, []string{"-TakingScreenshots", "YES", "-name", "Jane Doe"}, h.rec.launch.Args)
}

func TestLaunchWithoutBundleUsesLastLaunched(t *testing.T) {
	h := newHarness()

	require.Equal(t, apperr.ExitSuccess, h.execute("launch"))
	require.Empty(t, h.rec.launch.BundleID)
	require.Nil(t, h.rec.launch.Args)
}

func TestScrollAndGesture(t *testing.T) {
	h := newHarness()

	require.Equal(t, apperr.ExitSuccess, h.execute("scroll", "down", "--until-visible", "Footer", "--strict"))
	require.Equal(t, "down", h.rec.scroll.Direction)
	require.Equal(t, "Footer", h.rec.scroll.UntilVisible)
	require.True(t, h.rec.scroll.Strict)

	require.Equal(t, apperr.ExitSuccess, h.execute("gesture", "swipe", "-5,600", "100,-20"))
	require.Equal(t, []string{"swipe", "-5,600", "100,-20"}, h.rec.gesture)
}

func TestLocationParsesFloats(t *testing.T) {
	h := newHarness()

	require.Equal(t, apperr.ExitSuccess, h.execute("location", "37.33", "-122.03"))
	require.Equal(t, 37.33, h.rec.lat)
	require.Equal(t, -122.03, h.rec.lon)
}

func TestVersionFlag(t *testing.T) {
	h := newHarness()

	require.Equal(t, apperr.ExitSuccess, h.execute("--version"))
	require.Contains(t, h.stdout.String(), Version)
	require.Zero(t, h.runs)
}
