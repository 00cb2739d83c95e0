// FILE: lixenwraith/confclass/enums.go
package config

// EnvironmentEnum names the usual deployment environments
var EnvironmentEnum = MustEnum("Environment",
	EnumMember{Name: "Production", Value: 0},
	EnumMember{Name: "Staging", Value: 1},
	EnumMember{Name: "Test", Value: 2},
	EnumMember{Name: "Development", Value: 3},
)

// LogLevelEnum carries the conventional numeric log levels
var LogLevelEnum = MustEnum("LogLevel",
	EnumMember{Name: "NotSet", Value: 0},
	EnumMember{Name: "Debug", Value: 10},
	EnumMember{Name: "Info", Value: 20},
	EnumMember{Name: "Warn", Value: 30},
	EnumMember{Name: "Error", Value: 40},
	EnumMember{Name: "Critical", Value: 50},
)
