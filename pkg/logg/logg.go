package logg

// Field keys shared by every zap logger in the module.
const (
	Layer     = "layer"
	Operation = "op"
	Session   = "session_id"
	Device    = "device"
	Query     = "query"
	Tier      = "tier"
	Count     = "count"
	Action    = "action"
	BundleID  = "bundle_id"
	URL       = "url"
	Attempt   = "attempt"
	Command   = "command"
)
