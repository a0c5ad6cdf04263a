package pvdata

import "fmt"

// AlarmCondition is the native server's alarm status code. Values are
// meaningful only to the native alarm model.
type AlarmCondition int32

const (
	AlarmNone AlarmCondition = iota
	AlarmRead
	AlarmWrite
	AlarmHiHi
	AlarmHigh
	AlarmLoLo
	AlarmLow
	AlarmState
	AlarmCOS
	AlarmComm
	AlarmTimeout
	AlarmHwLimit
	AlarmCalc
	AlarmScan
	AlarmLink
	AlarmSoft
	AlarmBadSub
	AlarmUDF
	AlarmDisable
	AlarmSimm
	AlarmReadAccess
	AlarmWriteAccess
)

var alarmNames = []string{
	"NO_ALARM",
	"READ",
	"WRITE",
	"HIHI",
	"HIGH",
	"LOLO",
	"LOW",
	"STATE",
	"COS",
	"COMM",
	"TIMEOUT",
	"HWLIMIT",
	"CALC",
	"SCAN",
	"LINK",
	"SOFT",
	"BAD_SUB",
	"UDF",
	"DISABLE",
	"SIMM",
	"READ_ACCESS",
	"WRITE_ACCESS",
}

func (a AlarmCondition) String() string {
	if a >= 0 && int(a) < len(alarmNames) {
		return alarmNames[a]
	}
	return fmt.Sprintf("AlarmCondition(%d)", int32(a))
}

// Severity is the native server's alarm severity.
type Severity int32

const (
	SeverityNone Severity = iota
	SeverityMinor
	SeverityMajor
	SeverityInvalid
)

var severityNames = []string{
	"NO_ALARM",
	"MINOR",
	"MAJOR",
	"INVALID",
}

func (s Severity) String() string {
	if s >= 0 && int(s) < len(severityNames) {
		return severityNames[s]
	}
	return fmt.Sprintf("Severity(%d)", int32(s))
}

// EventMask selects which subscribers an update is posted to.
type EventMask uint32

const (
	EventValue EventMask = 1 << iota
	EventLog
	EventAlarm
	EventProperty
)
