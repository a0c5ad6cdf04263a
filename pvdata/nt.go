package pvdata

import "time"

// The structures below describe a PV as a client sees it. Field names follow
// the normative types so a protocol front end can map them one to one.

type Enum struct {
	Index   int32    `pvaccess:"index"`
	Choices []string `pvaccess:"choices"`
}

func (Enum) TypeID() string {
	return "enum_t"
}

type Alarm struct {
	Severity Severity       `pvaccess:"severity"`
	Status   AlarmCondition `pvaccess:"status"`
	Message  string         `pvaccess:"message"`
}

func (Alarm) TypeID() string {
	return "alarm_t"
}

// ValueAlarm mirrors the alarm thresholds a PV was declared with.
type ValueAlarm struct {
	Active           bool    `pvaccess:"active"`
	LowAlarmLimit    float64 `pvaccess:"lowAlarmLimit"`
	LowWarningLimit  float64 `pvaccess:"lowWarningLimit"`
	HighWarningLimit float64 `pvaccess:"highWarningLimit"`
	HighAlarmLimit   float64 `pvaccess:"highAlarmLimit"`
}

func (ValueAlarm) TypeID() string {
	return "valueAlarm_t"
}

type Display struct {
	LimitLow  float64 `pvaccess:"limitLow"`
	LimitHigh float64 `pvaccess:"limitHigh"`
	Units     string  `pvaccess:"units"`
	Precision int32   `pvaccess:"precision"`
}

func (Display) TypeID() string {
	return "display_t"
}

type Control struct {
	LimitLow  float64 `pvaccess:"limitLow"`
	LimitHigh float64 `pvaccess:"limitHigh"`
}

func (Control) TypeID() string {
	return "control_t"
}

// Update is one posted state of a PV.
type Update struct {
	Name string
	// Value is a bare element for scalar PVs and a typed slice for arrays.
	Value      interface{}
	Alarm      Alarm
	TimeStamp  time.Time
	Mask       EventMask
	Display    Display
	Control    Control
	ValueAlarm ValueAlarm
	// Enum is set for enum PVs only.
	Enum *Enum
}
