package archive

import "fmt"

// NewFactory returns an EngineFactory that looks bu_type up in builders,
// so the server only has to wire the formats it actually ships ("tar"
// and "dump"; anything else is rejected with ILLEGAL_ARGS at the
// start_backup/start_recover level, not here).
func NewFactory(builders map[string]func() Engine) EngineFactory {
	return func(butType string) (Engine, error) {
		build, ok := builders[butType]
		if !ok {
			return nil, fmt.Errorf("archive: unsupported bu_type %q", butType)
		}
		return build(), nil
	}
}
