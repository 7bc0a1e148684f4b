package domain

// OperationKind enumerates every logical brew operation the app can run.
// The set is closed: the executor and batch state machines switch over it
// exhaustively.
type OperationKind int

const (
	OpList OperationKind = iota
	OpListOutdated
	OpSearch
	OpInstall
	OpUninstall
	OpUpdate
	OpUpdateAll
	OpCleanCache
	OpCleanupOldVersions
	OpGetInfo
	OpPin
	OpUnpin
)

var operationNames = map[OperationKind]string{
	OpList:               "list",
	OpListOutdated:       "list-outdated",
	OpSearch:             "search",
	OpInstall:            "install",
	OpUninstall:          "uninstall",
	OpUpdate:             "update",
	OpUpdateAll:          "update-all",
	OpCleanCache:         "clean-cache",
	OpCleanupOldVersions: "cleanup-old-versions",
	OpGetInfo:            "get-info",
	OpPin:                "pin",
	OpUnpin:              "unpin",
}

// String returns the operation name used in logs and status lines
func (k OperationKind) String() string {
	if name, ok := operationNames[k]; ok {
		return name
	}
	return "unknown"
}

// Privileged reports whether the operation may require elevated credentials.
// Privileged operations are serialized system-wide: at most one runs at a
// time, queued submissions wait for the slot.
func (k OperationKind) Privileged() bool {
	switch k {
	case OpInstall, OpUninstall, OpUpdate, OpUpdateAll:
		return true
	default:
		return false
	}
}

// Verb returns the progressive verb for status messages ("Installing ...")
func (k OperationKind) Verb() string {
	switch k {
	case OpInstall:
		return "Installing"
	case OpUninstall:
		return "Uninstalling"
	case OpUpdate, OpUpdateAll:
		return "Updating"
	case OpCleanCache:
		return "Cleaning cache for"
	case OpCleanupOldVersions:
		return "Pruning old versions for"
	case OpPin:
		return "Pinning"
	case OpUnpin:
		return "Unpinning"
	case OpSearch:
		return "Searching"
	default:
		return "Loading"
	}
}
