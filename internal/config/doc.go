// Package config loads runtime configuration for the xjournal CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with --config or XJOURNAL_CONFIG.
//  3. Command-line flags, applied by the cli package, which override earlier
//     values.
//
// # JSON schema
//
// Durations are either strings like "3s" or integer nanoseconds. Absent
// keys keep their default:
//
//	{
//	  "db_path": "xjournal.db",
//	  "vault_path": "xjournal.vault",
//	  "journal": "default",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "remote": {
//	    "kind": "s3",
//	    "s3_endpoint": "http://127.0.0.1:9000",
//	    "s3_region": "us-east-1",
//	    "s3_bucket": "xjournal",
//	    "s3_prefix": "appDataFolder",
//	    "probe_addr": "127.0.0.1:9000",
//	    "probe_interval": "3s"
//	  },
//	  "sync": {
//	    "max_attempts": 3,
//	    "retry_delay": "0s",
//	    "retry_failed": true,
//	    "interval": "1m"
//	  }
//	}
//
// The vault passphrase is never read from the file; see the cli package.
package config
