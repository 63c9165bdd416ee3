package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Registry Errors (E100-E109)
	// ============================================

	"E100": {
		Category: CategoryRegistry,
		Message:  "Unknown identifier",
		Detail:   "No live entry has this identifier. The node was never connected, or it was detached before the lookup.",
	},
	"E101": {
		Category: CategoryRegistry,
		Message:  "Duplicate identifier",
		Detail:   "An entry with this identifier is already live. Registering it again would corrupt lifecycle tracking for the existing owner.",
	},
	"E102": {
		Category: CategoryRegistry,
		Message:  "Identifier collision",
		Detail:   "The allocator kept producing identifiers that are already live. Use a counter or ULID allocator, or a longer prefix.",
	},

	// ============================================
	// Lifecycle Errors (E110-E129)
	// ============================================

	"E110": {
		Category: CategoryLifecycle,
		Message:  "Malformed mutation record",
		Detail:   "The record has no target, or lists the same node as both added and removed. It was skipped.",
	},
	"E120": {
		Category: CategoryLifecycle,
		Message:  "Lifecycle callback panicked",
		Detail:   "An added, mutated or removed callback panicked. The remaining callbacks of the batch still ran.",
	},
	"E121": {
		Category: CategoryLifecycle,
		Message:  "Store update failed",
		Detail:   "Re-rendering a store-bound component after a store change failed.",
	},

	// ============================================
	// Render Errors (E130-E149)
	// ============================================

	"E130": {
		Category: CategoryRender,
		Message:  "Render produced no element",
		Detail:   "A render function returned nil or a text node. Connected nodes must be elements so they can carry the identity attribute.",
	},
	"E131": {
		Category: CategoryRender,
		Message:  "Render panicked",
		Detail:   "A render function panicked while producing a node.",
	},
	"E140": {
		Category: CategoryRender,
		Message:  "Patch failed",
		Detail:   "The patcher could not apply the new representation to the live node.",
	},
	"E141": {
		Category: CategoryRender,
		Message:  "Invalid update target",
		Detail:   "Update needs a live node and a non-nil new representation.",
	},

	// ============================================
	// Config Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		Detail:   "A configuration value is out of range or unknown.",
	},
	"E151": {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
		Detail:   "The configuration file could not be read or parsed.",
	},
}

// GetAllCodes returns all registered error codes.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}
