// Package adms implements the text side of the terminal push protocol
// (the "iclock" endpoints): table tags, record parsing, command lines and
// the handshake settings block. It performs no I/O.
package adms

import "strings"

// TableKind is the closed set of data tables a terminal may push.
type TableKind int

const (
	TableUnknown TableKind = iota
	TableAttLog
	TableOperLog
	TableUserInfo
	TableFingerTmp
	TableFace
	TableOptions
)

var tableNames = map[TableKind]string{
	TableUnknown:   "UNKNOWN",
	TableAttLog:    "ATTLOG",
	TableOperLog:   "OPERLOG",
	TableUserInfo:  "USERINFO",
	TableFingerTmp: "FINGERTMP",
	TableFace:      "FACE",
	TableOptions:   "OPTIONS",
}

func (k TableKind) String() string {
	if name, ok := tableNames[k]; ok {
		return name
	}
	return "UNKNOWN"
}

// ParseTableKind maps the ?table= tag to a TableKind. Firmware variants
// use several aliases for the same table.
func ParseTableKind(tag string) TableKind {
	switch strings.ToUpper(strings.TrimSpace(tag)) {
	case "ATTLOG":
		return TableAttLog
	case "OPERLOG", "OPLOG":
		return TableOperLog
	case "USERINFO", "USER":
		return TableUserInfo
	case "FINGERTMP", "FP", "TEMPLATEV10":
		return TableFingerTmp
	case "FACE", "BIODATA", "FACETMP":
		return TableFace
	case "OPTIONS":
		return TableOptions
	default:
		return TableUnknown
	}
}
