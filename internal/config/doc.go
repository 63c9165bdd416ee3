// Package config provides configuration parsing for throwdown.
//
// The configuration is read from throwdown.json or throwdown.yaml in the
// working directory. Every field is optional; missing fields keep their
// defaults.
//
// # Configuration File Structure
//
//	identity:
//	  allocator: counter    # counter, ulid or uuid
//	  prefix: a
//	  maxAttempts: 8
//	runtime:
//	  taskBuffer: 256
//	  maxFlushRounds: 64
//	log:
//	  level: info           # debug, info, warn or error
//	  format: text          # text or json
//	metrics:
//	  enabled: true
//	  namespace: throwdown
//	inspect:
//	  enabled: false
//	  addr: 127.0.0.1:7070
//	  eventBuffer: 128
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	logger := slog.New(cfg.Log.Handler(os.Stderr))
package config
