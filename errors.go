package pcas

import (
	"github.com/quentinmit/go-pcas/native"
	"github.com/quentinmit/go-pcas/pvdata"
	"github.com/quentinmit/go-pcas/pvdef"
)

// Declaration is one PV definition, usually loaded with LoadDeclarations.
type Declaration = pvdef.Declaration

type SchemaError = pvdef.SchemaError
type ProtocolMismatchError = pvdata.ProtocolMismatchError
type UnknownTypeError = pvdata.UnknownTypeError

var (
	ErrUnknownPV       = native.ErrUnknownPV
	ErrAlreadyReleased = native.ErrAlreadyReleased
)

// LoadDeclarations reads a YAML PV declaration file.
func LoadDeclarations(path string) ([]Declaration, error) {
	return pvdef.Load(path)
}

type AlarmCondition = pvdata.AlarmCondition
type Severity = pvdata.Severity

const (
	AlarmNone        = pvdata.AlarmNone
	AlarmRead        = pvdata.AlarmRead
	AlarmWrite       = pvdata.AlarmWrite
	AlarmHiHi        = pvdata.AlarmHiHi
	AlarmHigh        = pvdata.AlarmHigh
	AlarmLoLo        = pvdata.AlarmLoLo
	AlarmLow         = pvdata.AlarmLow
	AlarmState       = pvdata.AlarmState
	AlarmCOS         = pvdata.AlarmCOS
	AlarmComm        = pvdata.AlarmComm
	AlarmTimeout     = pvdata.AlarmTimeout
	AlarmHwLimit     = pvdata.AlarmHwLimit
	AlarmCalc        = pvdata.AlarmCalc
	AlarmScan        = pvdata.AlarmScan
	AlarmLink        = pvdata.AlarmLink
	AlarmSoft        = pvdata.AlarmSoft
	AlarmBadSub      = pvdata.AlarmBadSub
	AlarmUDF         = pvdata.AlarmUDF
	AlarmDisable     = pvdata.AlarmDisable
	AlarmSimm        = pvdata.AlarmSimm
	AlarmReadAccess  = pvdata.AlarmReadAccess
	AlarmWriteAccess = pvdata.AlarmWriteAccess

	SeverityNone    = pvdata.SeverityNone
	SeverityMinor   = pvdata.SeverityMinor
	SeverityMajor   = pvdata.SeverityMajor
	SeverityInvalid = pvdata.SeverityInvalid
)
