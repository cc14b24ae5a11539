// Package validate holds the name- and path-validation rules shared by
// foldersvc and filesvc: length limits, forbidden characters, reserved
// Windows device names, and the trash-prefix reservation, per spec.md
// §4.5 step 1 and §6's "trash prefix must be reserved and rejected in
// user-chosen names".
package validate

import (
	"strings"

	"github.com/cernbox/docvault/pkg/errkind"
)

const maxNameLength = 255

// forbiddenChars mirrors the Windows-reserved character set named in
// spec.md §4.5: < > : " / \ | ? * plus control bytes.
const forbiddenChars = `<>:"/\|?*`

var reservedWindowsNames = map[string]bool{
	"CON": true, "PRN": true, "AUX": true, "NUL": true,
	"COM1": true, "COM2": true, "COM3": true, "COM4": true, "COM5": true,
	"COM6": true, "COM7": true, "COM8": true, "COM9": true,
	"LPT1": true, "LPT2": true, "LPT3": true, "LPT4": true, "LPT5": true,
	"LPT6": true, "LPT7": true, "LPT8": true, "LPT9": true,
}

// Name validates a folder or file name in isolation (not against siblings).
func Name(name string) error {
	if name == "" {
		return errkind.Validation("name must not be empty")
	}
	if len(name) > maxNameLength {
		return errkind.Validation("name exceeds maximum length of 255")
	}
	if strings.ContainsAny(name, forbiddenChars) {
		return errkind.Validation(`name contains a forbidden character: < > : " / \ | ? *`)
	}
	for _, r := range name {
		if r < 0x20 {
			return errkind.Validation("name contains a control character")
		}
	}
	upper := strings.ToUpper(strings.TrimSuffix(name, extension(name)))
	if reservedWindowsNames[upper] {
		return errkind.Validation("name is a reserved device name: " + name)
	}
	if strings.HasPrefix(name, ".trash") {
		return errkind.Validation("name must not use the reserved .trash prefix")
	}
	return nil
}

func extension(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

// IsDescendantPath reports whether candidate is path itself or lies under
// it, anchoring the prefix match at a "/" boundary so "/a/b" doesn't match
// "/a/bc" (spec.md §4.3, §9).
func IsDescendantPath(path, candidate string) bool {
	if candidate == path {
		return true
	}
	prefix := path
	if prefix != "/" {
		prefix += "/"
	}
	return strings.HasPrefix(candidate, prefix)
}

// JoinPath joins a parent path and a child name the way Folder.path is
// defined in spec.md §3: root is "/", everything else is parent + "/" + name.
func JoinPath(parentPath, name string) string {
	if parentPath == "/" {
		return "/" + name
	}
	return parentPath + "/" + name
}
