package entity

import "strings"

// Role is a canonical, backend independent element role.
type Role string

const (
	RoleApplication       Role = "application"
	RoleWindow            Role = "window"
	RoleOther             Role = "other"
	RoleGroup             Role = "group"
	RoleButton            Role = "button"
	RoleCell              Role = "cell"
	RoleTextField         Role = "textfield"
	RoleSecureTextField   Role = "securetextfield"
	RoleTextView          Role = "textview"
	RoleStaticText        Role = "statictext"
	RoleLink              Role = "link"
	RoleImage             Role = "image"
	RoleIcon              Role = "icon"
	RoleSearchField       Role = "searchfield"
	RoleSlider            Role = "slider"
	RoleSwitch            Role = "switch"
	RoleToggle            Role = "toggle"
	RoleNavigationBar     Role = "navigationbar"
	RoleTabBar            Role = "tabbar"
	RoleTable             Role = "table"
	RoleCollectionView    Role = "collectionview"
	RoleScrollView        Role = "scrollview"
	RoleAlert             Role = "alert"
	RoleSheet             Role = "sheet"
	RoleToolbar           Role = "toolbar"
	RoleHeading           Role = "heading"
	RoleKeyboard          Role = "keyboard"
	RoleKey               Role = "key"
	RoleWebView           Role = "webview"
	RolePicker            Role = "picker"
	RolePickerWheel       Role = "pickerwheel"
	RoleSegmentedControl  Role = "segmentedcontrol"
	RoleStepper           Role = "stepper"
	RoleProgressIndicator Role = "progressindicator"
	RoleActivityIndicator Role = "activityindicator"
	RolePageIndicator     Role = "pageindicator"
	RoleMenu              Role = "menu"
	RoleMenuItem          Role = "menuitem"
	RoleTab               Role = "tab"
	RoleCheckBox          Role = "checkbox"
	RoleRadioButton       Role = "radiobutton"
	RoleMap               Role = "map"
	RoleStatusBar         Role = "statusbar"
	RoleDatePicker        Role = "datepicker"
	RoleComboBox          Role = "combobox"
	RolePopUpButton       Role = "popupbutton"
	RoleMenuButton        Role = "menubutton"
	RoleToolbarButton     Role = "toolbarbutton"
	RoleMenuBar           Role = "menubar"
	RoleMenuBarItem       Role = "menubaritem"
	RoleTabGroup          Role = "tabgroup"
	RoleTableRow          Role = "tablerow"
	RoleTableColumn       Role = "tablecolumn"
	RoleOutline           Role = "outline"
	RoleOutlineRow        Role = "outlinerow"
	RoleGrid              Role = "grid"
	RoleBrowser           Role = "browser"
	RoleDisclosure        Role = "disclosuretriangle"
	RoleSplitGroup        Role = "splitgroup"
	RoleSplitter          Role = "splitter"
	RoleValueIndicator    Role = "valueindicator"
	RoleLevelIndicator    Role = "levelindicator"
	RoleRatingIndicator   Role = "ratingindicator"
	RoleColorWell         Role = "colorwell"
	RoleLayoutArea        Role = "layoutarea"
	RoleLayoutItem        Role = "layoutitem"
	RoleTouchBar          Role = "touchbar"
	RoleStatusItem        Role = "statusitem"
)

var knownRoles = map[Role]struct{}{}

func init() {
	for _, r := range []Role{
		RoleApplication, RoleWindow, RoleOther, RoleGroup, RoleButton, RoleCell,
		RoleTextField, RoleSecureTextField, RoleTextView, RoleStaticText, RoleLink,
		RoleImage, RoleIcon, RoleSearchField, RoleSlider, RoleSwitch, RoleToggle,
		RoleNavigationBar, RoleTabBar, RoleTable, RoleCollectionView, RoleScrollView,
		RoleAlert, RoleSheet, RoleToolbar, RoleHeading, RoleKeyboard, RoleKey,
		RoleWebView, RolePicker, RolePickerWheel, RoleSegmentedControl, RoleStepper,
		RoleProgressIndicator, RoleActivityIndicator, RolePageIndicator, RoleMenu,
		RoleMenuItem, RoleTab, RoleCheckBox, RoleRadioButton, RoleMap, RoleStatusBar,
		RoleDatePicker, RoleComboBox, RolePopUpButton, RoleMenuButton, RoleToolbarButton,
		RoleMenuBar, RoleMenuBarItem, RoleTabGroup, RoleTableRow, RoleTableColumn,
		RoleOutline, RoleOutlineRow, RoleGrid, RoleBrowser, RoleDisclosure,
		RoleSplitGroup, RoleSplitter, RoleValueIndicator, RoleLevelIndicator,
		RoleRatingIndicator, RoleColorWell, RoleLayoutArea, RoleLayoutItem,
		RoleTouchBar, RoleStatusItem,
	} {
		knownRoles[r] = struct{}{}
	}
}

var roleAliases = map[string]Role{
	"text":          RoleStaticText,
	"label":         RoleStaticText,
	"navbar":        RoleNavigationBar,
	"navigation":    RoleNavigationBar,
	"tablist":       RoleTabBar,
	"list":          RoleTable,
	"textarea":      RoleTextView,
	"textedit":      RoleTextView,
	"datefield":     RoleDatePicker,
	"input":         RoleTextField,
	"field":         RoleTextField,
	"securefield":   RoleSecureTextField,
	"collection":    RoleCollectionView,
	"scrollarea":    RoleScrollView,
	"popover":       RoleSheet,
	"actionsheet":   RoleSheet,
	"dialog":        RoleAlert,
	"progress":      RoleProgressIndicator,
	"spinner":       RoleActivityIndicator,
	"segmented":     RoleSegmentedControl,
	"checkboxfield": RoleCheckBox,
	"radio":         RoleRadioButton,
	"aut":           RoleApplication,
	"appiumaut":     RoleApplication,
}

var (
	interactiveRoles = roleSet(
		RoleButton, RoleTextField, RoleCell, RoleSwitch, RoleStaticText,
		RoleLink, RoleImage, RoleSearchField, RoleSlider, RoleToggle,
	)
	structuralRoles = roleSet(
		RoleNavigationBar, RoleTabBar, RoleTable, RoleScrollView, RoleAlert,
		RoleSheet, RoleToolbar, RoleWindow, RoleApplication,
	)
	scoringRoles = roleSet(RoleButton, RoleCell, RoleTextField, RoleLink, RoleSwitch)
	windowRoles  = roleSet(RoleWindow, RoleApplication)
)

// CanonicalRole maps any backend role spelling ("XCUIElementTypeButton",
// "AXButton", "button") onto the closed Role set. Unknown roles become RoleOther.
func CanonicalRole(raw string) Role {
	r, ok := LookupRole(raw)
	if !ok {
		return RoleOther
	}

	return r
}

// LookupRole is CanonicalRole without the RoleOther fallback. For unknown
// input it returns the normalized spelling and false.
func LookupRole(raw string) (Role, bool) {
	name := normalizeRoleName(raw)

	if _, ok := knownRoles[Role(name)]; ok {
		return Role(name), true
	}
	if alias, ok := roleAliases[name]; ok {
		return alias, true
	}

	return Role(name), false
}

func normalizeRoleName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	name = strings.TrimPrefix(name, "xcuielementtype")

	if stripped := strings.TrimPrefix(name, "ax"); stripped != name {
		if _, ok := knownRoles[Role(stripped)]; ok {
			return stripped
		}
		if _, ok := roleAliases[stripped]; ok {
			return stripped
		}
	}

	return name
}

func (r Role) IsInteractive() bool {
	_, ok := interactiveRoles[r]

	return ok
}

func (r Role) IsStructural() bool {
	_, ok := structuralRoles[r]

	return ok
}

func (r Role) IsMeaningful() bool {
	return r.IsInteractive() || r.IsStructural()
}

func (r Role) IsScoring() bool {
	_, ok := scoringRoles[r]

	return ok
}

func (r Role) IsWindowRooted() bool {
	_, ok := windowRoles[r]

	return ok
}

func roleSet(roles ...Role) map[Role]struct{} {
	set := make(map[Role]struct{}, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}

	return set
}
