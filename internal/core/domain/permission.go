package domain

// PermissionLevel is an ordered capability tier granted to room accessors.
type PermissionLevel string

const (
	PermissionViewer PermissionLevel = "viewer"
	PermissionAssist PermissionLevel = "assist"
	PermissionEditor PermissionLevel = "editor"
)

func (p PermissionLevel) Valid() bool {
	switch p {
	case PermissionViewer, PermissionAssist, PermissionEditor:
		return true
	}
	return false
}

// Action is a per-request capability check against a permission level.
type Action string

const (
	ActionView        Action = "view"
	ActionEditNew     Action = "edit_new"
	ActionEditHistory Action = "edit_history"
)

var permissionRank = map[PermissionLevel]int{
	PermissionViewer: 0,
	PermissionAssist: 1,
	PermissionEditor: 2,
}

func rank(p PermissionLevel) int {
	r, ok := permissionRank[p]
	if !ok {
		return -1 // unknown levels sort below viewer
	}
	return r
}

// Compare orders permission levels: viewer < assist < editor.
func Compare(a, b PermissionLevel) int {
	switch ra, rb := rank(a), rank(b); {
	case ra < rb:
		return -1
	case ra > rb:
		return 1
	default:
		return 0
	}
}

// EffectiveLevel clamps a requested level to the given ceiling.
func EffectiveLevel(requested, ceiling PermissionLevel) PermissionLevel {
	if Compare(requested, ceiling) <= 0 {
		return requested
	}
	return ceiling
}

// AllowedLevelsUnderHistoryLock lists the levels grantable while a room's
// history is locked. Editor is categorically excluded, independent of the
// room's max permission.
func AllowedLevelsUnderHistoryLock() []PermissionLevel {
	return []PermissionLevel{PermissionViewer, PermissionAssist}
}

// ClampToHistoryLock downgrades editor to assist; other levels pass through.
func ClampToHistoryLock(level PermissionLevel) PermissionLevel {
	if level == PermissionEditor {
		return PermissionAssist
	}
	return level
}

// CanPerform reports whether a level allows an action, taking the room's
// history lock into account for edits to pre-lock content.
func CanPerform(level PermissionLevel, action Action, historyLocked bool) bool {
	switch action {
	case ActionView:
		return true
	case ActionEditNew:
		return Compare(level, PermissionAssist) >= 0
	case ActionEditHistory:
		return level == PermissionEditor && !historyLocked
	}
	return false
}
