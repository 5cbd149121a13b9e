// Package exitcode provides standardized exit codes for isolinks
package exitcode

// Exit codes for the isolinks CLI
const (
	Success         = 0
	GeneralError    = 1
	ConfigError     = 2
	CatalogError    = 3
	FileSystemError = 4
	NetworkError    = 5
	Unresolved      = 6
	PublishError    = 7
	TargetNotFound  = 8
)

// String returns a human-readable description of the exit code
func String(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case ConfigError:
		return "Configuration error"
	case CatalogError:
		return "Catalog error"
	case FileSystemError:
		return "File system error"
	case NetworkError:
		return "Network error"
	case Unresolved:
		return "One or more distributions unresolved"
	case PublishError:
		return "Publish error"
	case TargetNotFound:
		return "Target not found"
	default:
		return "Unknown error"
	}
}
