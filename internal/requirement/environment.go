package requirement

import "strings"

// Environment holds the marker variables of the packaging target. It is a
// plain value so callers can evaluate against any number of targets.
type Environment struct {
	PythonVersion                string
	PythonFullVersion            string
	OSName                       string
	SysPlatform                  string
	PlatformSystem               string
	PlatformMachine              string
	PlatformRelease              string
	PlatformVersion              string
	PlatformPythonImplementation string
	ImplementationName           string
	ImplementationVersion        string
}

// NewEnvironment derives a CPython environment from a Python minor version
// ("3.6"), a sys.platform value ("linux") and a machine ("x86_64").
func NewEnvironment(pythonVersion, platform, machine string) Environment {
	full := pythonVersion
	if strings.Count(full, ".") == 1 {
		full += ".0"
	}

	osName := "posix"
	system := platform
	switch {
	case platform == "win32":
		osName = "nt"
		system = "Windows"
	case platform == "cygwin":
		system = "CYGWIN"
	case platform == "darwin":
		system = "Darwin"
	case strings.HasPrefix(platform, "linux"):
		system = "Linux"
	case platform != "":
		system = strings.ToUpper(platform[:1]) + platform[1:]
	}
	return Environment{
		PythonVersion:                pythonVersion,
		PythonFullVersion:            full,
		OSName:                       osName,
		SysPlatform:                  platform,
		PlatformSystem:               system,
		PlatformMachine:              machine,
		PlatformPythonImplementation: "CPython",
		ImplementationName:           "cpython",
		ImplementationVersion:        full,
	}
}

// knownVariables lists every marker variable, including legacy dotted names.
var knownVariables = map[string]bool{
	"python_version":                 true,
	"python_full_version":            true,
	"os_name":                        true,
	"os.name":                        true,
	"sys_platform":                   true,
	"sys.platform":                   true,
	"platform_system":                true,
	"platform_machine":               true,
	"platform.machine":               true,
	"platform_release":               true,
	"platform_version":               true,
	"platform.version":               true,
	"platform_python_implementation": true,
	"platform.python_implementation": true,
	"python_implementation":          true,
	"implementation_name":            true,
	"implementation_version":         true,
	"extra":                          true,
}

// Lookup returns the value of a marker variable.
func (e Environment) Lookup(name string) (string, bool) {
	switch name {
	case "python_version":
		return e.PythonVersion, true
	case "python_full_version":
		return e.PythonFullVersion, true
	case "os_name", "os.name":
		return e.OSName, true
	case "sys_platform", "sys.platform":
		return e.SysPlatform, true
	case "platform_system":
		return e.PlatformSystem, true
	case "platform_machine", "platform.machine":
		return e.PlatformMachine, true
	case "platform_release":
		return e.PlatformRelease, true
	case "platform_version", "platform.version":
		return e.PlatformVersion, true
	case "platform_python_implementation", "platform.python_implementation", "python_implementation":
		return e.PlatformPythonImplementation, true
	case "implementation_name":
		return e.ImplementationName, true
	case "implementation_version":
		return e.ImplementationVersion, true
	}
	return "", false
}
