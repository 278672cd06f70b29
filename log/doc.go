// Package log provides structured logging handler construction for use with
// [log/slog].
//
// It supports multiple output formats ([FormatJSON], [FormatLogfmt], and
// [FormatText]) and severity levels ([LevelError], [LevelWarn], [LevelInfo],
// and [LevelDebug]). Use [NewHandler] to create a handler directly, or use
// [Config] with CLI flag integration via [github.com/spf13/pflag] and shell
// completion support via [github.com/spf13/cobra].
//
// Typical usage creates a [Config], registers flags, then builds a handler
// at startup:
//
//	cfg := log.NewConfig()
//	cfg.RegisterFlags(rootCmd.PersistentFlags())
//	cfg.RegisterCompletions(rootCmd)
//
//	handler, err := cfg.NewHandler(os.Stderr)
//	slog.SetDefault(slog.New(handler))
//
// A [Publisher] fans out log output to multiple subscribers. vtrender's
// player package writes its panic guard's crash records to one so a caller
// can surface a recovered panic after playback ends without touching
// stdout mid-frame:
//
//	pub := log.NewPublisher()
//	sub := pub.Subscribe()
//
//	guard := crashguard.New(cancelFlag, pub, logger)
//	defer guard.Recover()
//
//	// ... after the guarded call returns ...
//	for {
//	    select {
//	    case entry, ok := <-sub.C():
//	        if !ok {
//	            return
//	        }
//	        os.Stderr.Write(entry)
//	    default:
//	        return
//	    }
//	}
//
// Combine it with [io.MultiWriter] to write to multiple locations:
//
//	pub := log.NewPublisher()
//	w := io.MultiWriter(logFile, pub)
//	handler := log.NewHandler(w, log.LevelInfo, log.FormatJSON)
//	logger := slog.New(handler)
package log
