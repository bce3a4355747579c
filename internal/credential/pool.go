package credential

import "github.com/nanogate/imagegate/internal/config"

// Tags identify where a credential in the pool came from.
const (
	TagPrimary = "primary"
	TagBackup  = "backup"
	TagSpecial = "special"
	TagCaller  = "caller"
)

// Credential is an opaque provider secret. Immutable for the duration of
// a dispatch attempt; the pool is rebuilt from the config snapshot on
// every call, so hot-reloaded keys apply on the next dispatch.
type Credential struct {
	Key string
	Tag string
}

// Empty reports whether this is the placeholder credential.
func (c Credential) Empty() bool {
	return c.Key == ""
}

// Resolve builds the ordered credential pool for one dispatch.
//
// A caller-supplied key short-circuits the pool to length 1 and bypasses
// the system pools entirely. Models on the special list use their reserved
// key tier. Everything else gets the primary key followed by the backups.
// An empty result degenerates to a single placeholder credential so the
// executor still makes the call and surfaces the provider's authorization
// failure instead of silently doing nothing.
func Resolve(cfg *config.Config, targetModel, callerKey string) []Credential {
	if callerKey != "" {
		return []Credential{{Key: callerKey, Tag: TagCaller}}
	}

	pool := systemPool(cfg, targetModel)

	if len(pool) == 0 {
		return []Credential{{Tag: TagPrimary}}
	}

	return pool
}

func systemPool(cfg *config.Config, targetModel string) []Credential {
	rules := cfg.Auth.ModelRules

	if isSpecial(rules.SpecialModels, targetModel) {
		pool := make([]Credential, 0, len(rules.SpecialKeys))
		for _, key := range rules.SpecialKeys {
			if key == "" {
				continue
			}
			pool = append(pool, Credential{Key: key, Tag: TagSpecial})
		}
		return pool
	}

	pool := make([]Credential, 0, 1+len(cfg.Auth.BackupKeys))
	if cfg.Auth.APIKey != "" {
		pool = append(pool, Credential{Key: cfg.Auth.APIKey, Tag: TagPrimary})
	}
	for _, key := range cfg.Auth.BackupKeys {
		if key == "" {
			continue
		}
		pool = append(pool, Credential{Key: key, Tag: TagBackup})
	}

	return pool
}

func isSpecial(specialModels []string, model string) bool {
	for _, m := range specialModels {
		if m == model {
			return true
		}
	}
	return false
}
