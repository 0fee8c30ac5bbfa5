package types

import "strings"

// QualifiedSeparator separates the file path from the entity name in a qualified name
const QualifiedSeparator = "#"

// QualifiedName builds a file-scoped call-target identifier ("file#name")
func QualifiedName(filePath, name string) string {
	return filePath + QualifiedSeparator + name
}

// SplitQualified splits a call target into its file and name parts.
// scoped is false for bare names, in which case file is empty.
func SplitQualified(target string) (file, name string, scoped bool) {
	i := strings.LastIndex(target, QualifiedSeparator)
	if i <= 0 || i == len(target)-1 {
		return "", target, false
	}
	return target[:i], target[i+1:], true
}

// BareName returns the entity name of a qualified or bare call target
func BareName(target string) string {
	_, name, _ := SplitQualified(target)
	return name
}
