package defs

const (
	EmptyString string = ""

	// Default request paths used when the configured endpoint URL
	// carries no path of its own.
	PathGraphQL         string = "/graphql"
	PathChatCompletions string = "/v1/chat/completions"

	// Page size applied when neither the caller nor the configuration
	// sets one.
	DefaultPerPage int = 20
)

// Agent kinds accepted by the fleet registry.
const (
	AgentKindFluentBit      string = "FLUENTBIT"
	AgentKindFluentDo       string = "FLUENTDO"
	AgentKindTelemetryForge string = "TELEMETRY_FORGE"
)

// Agent statuses reported by the fleet registry.
const (
	AgentStatusRunning string = "RUNNING"
	AgentStatusOffline string = "OFFLINE"
)

// Label filter modes for agent queries.
const (
	LabelFilterAny string = "ANY"
	LabelFilterAll string = "ALL"
)

// Package types accepted on agent registration.
const (
	PackageTypeContainer string = "CONTAINER"
	PackageTypePackage   string = "PACKAGE"
)

// Sort fields accepted by the agents query.
const (
	SortKind      string = "KIND"
	SortName      string = "NAME"
	SortVersion   string = "VERSION"
	SortOS        string = "OS"
	SortArch      string = "ARCH"
	SortStatus    string = "STATUS"
	SortLastSeen  string = "LAST_SEEN"
	SortCreatedAt string = "CREATED_AT"
	SortUpdatedAt string = "UPDATED_AT"
)

// ValidSortFields lists every sort field the registry accepts.
var ValidSortFields = []string{
	SortKind, SortName, SortVersion, SortOS, SortArch,
	SortStatus, SortLastSeen, SortCreatedAt, SortUpdatedAt,
}

// IsValidAgentKind reports whether kind is one of the registry's agent kinds.
func IsValidAgentKind(kind string) bool {
	return kind == AgentKindFluentBit || kind == AgentKindFluentDo || kind == AgentKindTelemetryForge
}

// IsValidSortField reports whether field is accepted by the agents query.
func IsValidSortField(field string) bool {
	for _, f := range ValidSortFields {
		if f == field {
			return true
		}
	}
	return false
}
