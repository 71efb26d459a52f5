package store

import (
	"context"
	"path/filepath"

	"github.com/cyrogem/nodedialogue/pkg/errors"
)

// Backend names accepted by [Open].
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
	BackendS3     = "s3"
)

// Backends lists the names accepted by [Open].
var Backends = []string{BackendFile, BackendMemory, BackendRedis, BackendMongo, BackendS3}

// Config selects and configures a backend.
type Config struct {
	Backend    string // one of [Backends]; empty means file
	Dir        string // file backend folder
	ScriptGUID string
	Redis      RedisConfig
	Mongo      MongoConfig
	S3         S3Config
}

// Open connects the configured backend and wraps it in a [Store].
func Open(ctx context.Context, cfg Config) (*Store, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Backend {
	case "", BackendFile:
		if !filepath.IsAbs(cfg.Dir) {
			if err := errors.ValidatePath(cfg.Dir); err != nil {
				return nil, err
			}
		}
		b, err = NewFileStore(cfg.Dir, cfg.ScriptGUID)
	case BackendMemory:
		b = NewMemoryStore()
	case BackendRedis:
		rc := cfg.Redis
		if rc.ScriptGUID == "" {
			rc.ScriptGUID = cfg.ScriptGUID
		}
		b, err = DialRedisStore(ctx, rc)
	case BackendMongo:
		b, err = DialMongoStore(ctx, cfg.Mongo)
	case BackendS3:
		sc := cfg.S3
		if sc.ScriptGUID == "" {
			sc.ScriptGUID = cfg.ScriptGUID
		}
		b, err = NewS3Store(ctx, sc)
	default:
		return nil, errors.New(errors.ErrCodeInvalidInput, "unknown store backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorage, err, "open %s store", cfg.Backend)
	}
	return New(b), nil
}
