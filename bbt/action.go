package bbt

// Need controls the error-vs-empty-result contract of every locating operation
type Need bool

// revive:exported
const (
	Required Need = true
	Optional Need = false
)

func (n Need) String() string {
	if n {
		return "required"
	}
	return "optional"
}

// ActionType of the operation a session performs, used for log fields
type ActionType int8

// revive:exported
const (
	ActFind ActionType = iota
	ActFindAll
	ActClick
	ActClear
	ActSendKeys
	ActSubmit
	ActCheck
	ActHover
	ActScroll
	ActRead
	ActSelect
	ActTable
	ActWait
	ActNavigate
	ActWindow
	ActFrame
	ActAlert
	ActScript
)

var actionTypeMap = map[ActionType]string{
	ActFind:     "find",
	ActFindAll:  "find_all",
	ActClick:    "click",
	ActClear:    "clear",
	ActSendKeys: "send_keys",
	ActSubmit:   "submit",
	ActCheck:    "check",
	ActHover:    "hover",
	ActScroll:   "scroll",
	ActRead:     "read",
	ActSelect:   "select",
	ActTable:    "table",
	ActWait:     "wait",
	ActNavigate: "navigate",
	ActWindow:   "window",
	ActFrame:    "frame",
	ActAlert:    "alert",
	ActScript:   "script",
}

func (a ActionType) String() string {
	if s, ok := actionTypeMap[a]; ok {
		return s
	}
	return "unknown"
}
