package entity

// SimplifiedNode is the compact tree form handed to automation callers.
type SimplifiedNode struct {
	Type     string           `json:"type" yaml:"type"`
	ID       string           `json:"id,omitempty" yaml:"id,omitempty"`
	Label    string           `json:"label,omitempty" yaml:"label,omitempty"`
	Value    string           `json:"value,omitempty" yaml:"value,omitempty"`
	Frame    string           `json:"frame,omitempty" yaml:"frame,omitempty"`
	Children []SimplifiedNode `json:"children,omitempty" yaml:"children,omitempty"`
}

type InspectResult struct {
	App      string           `json:"app" yaml:"app"`
	ScreenID string           `json:"screen_id" yaml:"screen_id"`
	Elements []SimplifiedNode `json:"elements" yaml:"elements"`
}

const StatusSuccess = "success"

// ActionResult is the single object printed for every mutating command.
type ActionResult struct {
	Status    string   `json:"status" yaml:"status"`
	Action    string   `json:"action" yaml:"action"`
	Query     string   `json:"query,omitempty" yaml:"query,omitempty"`
	Target    string   `json:"target,omitempty" yaml:"target,omitempty"`
	Text      string   `json:"text,omitempty" yaml:"text,omitempty"`
	Direction string   `json:"direction,omitempty" yaml:"direction,omitempty"`
	State     string   `json:"state,omitempty" yaml:"state,omitempty"`
	BundleID  string   `json:"bundle_id,omitempty" yaml:"bundle_id,omitempty"`
	URL       string   `json:"url,omitempty" yaml:"url,omitempty"`
	Service   string   `json:"service,omitempty" yaml:"service,omitempty"`
	File      string   `json:"file,omitempty" yaml:"file,omitempty"`
	Elapsed   string   `json:"elapsed,omitempty" yaml:"elapsed,omitempty"`
	Found     *bool    `json:"found,omitempty" yaml:"found,omitempty"`
	Attempts  int      `json:"attempts,omitempty" yaml:"attempts,omitempty"`
	Args      []string `json:"args,omitempty" yaml:"args,omitempty"`
}

type AppInfo struct {
	BundleID string `json:"bundle_id" yaml:"bundle_id"`
	Running  bool   `json:"running" yaml:"running"`
}

type Dialog struct {
	Title   string `json:"title" yaml:"title"`
	Message string `json:"message,omitempty" yaml:"message,omitempty"`
}

type ScreenAnalysis struct {
	Title      string   `json:"title,omitempty" yaml:"title,omitempty"`
	Breadcrumb []string `json:"breadcrumb,omitempty" yaml:"breadcrumb,omitempty"`
	Alert      *Dialog  `json:"alert,omitempty" yaml:"alert,omitempty"`
}

type ContextResult struct {
	Device     *Device          `json:"device,omitempty" yaml:"device,omitempty"`
	App        AppInfo          `json:"app" yaml:"app"`
	Screen     ScreenAnalysis   `json:"screen" yaml:"screen"`
	UI         []SimplifiedNode `json:"ui,omitempty" yaml:"ui,omitempty"`
	Logs       []string         `json:"logs,omitempty" yaml:"logs,omitempty"`
	Screenshot string           `json:"screenshot,omitempty" yaml:"screenshot,omitempty"`
}

type LogsResult struct {
	BundleID    string   `json:"bundle_id" yaml:"bundle_id"`
	Lines       []string `json:"lines,omitempty" yaml:"lines,omitempty"`
	CrashReport string   `json:"crash_report,omitempty" yaml:"crash_report,omitempty"`
	CrashFile   string   `json:"crash_file,omitempty" yaml:"crash_file,omitempty"`
}

type FileEntry struct {
	Name  string `json:"name" yaml:"name"`
	Dir   bool   `json:"dir,omitempty" yaml:"dir,omitempty"`
	Size  int64  `json:"size,omitempty" yaml:"size,omitempty"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

type TreeResult struct {
	BundleID string      `json:"bundle_id" yaml:"bundle_id"`
	Path     string      `json:"path" yaml:"path"`
	Entries  []FileEntry `json:"entries" yaml:"entries"`
}

type ToolCheck struct {
	Name  string `json:"name" yaml:"name"`
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
	OK    bool   `json:"ok" yaml:"ok"`
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

type DoctorResult struct {
	Tools        []ToolCheck `json:"tools" yaml:"tools"`
	BackendReady bool        `json:"wda_ready" yaml:"wda_ready"`
	Booted       []Device    `json:"booted" yaml:"booted"`
	Target       string      `json:"target,omitempty" yaml:"target,omitempty"`
	TargetError  string      `json:"target_error,omitempty" yaml:"target_error,omitempty"`
	Healthy      bool        `json:"healthy" yaml:"healthy"`
}

// LaunchOptions describes an app launch on the simulator.
type LaunchOptions struct {
	BundleID string
	Clean    bool
	Args     []string
	Locale   string
}
