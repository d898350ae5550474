// Package server assembles the persistent-namespace backend.
//
// Boot sequence:
//  1. Load configuration from environment/flags
//  2. Initialize logger
//  3. Open the durable store (degrading to memory-only on failure)
//  4. Run schema migrations (fatal on failure, store left at last good version)
//  5. Build the tree from the default layout and overlay persisted records
//  6. Acquire or concede the session lease
//  7. Serve HTTP with CORS, rate limiting, and /metrics
//
// Example Usage:
//
//	cfg := config.LoadOrDefault()
//	srv, err := server.New(cfg, logger)
//	if err := srv.Run(); err != nil {
//	    log.Fatal(err)
//	}
package server
