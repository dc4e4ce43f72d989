package check

import "time"

// Result is the uniform outcome of one check execution. Executors never
// return errors past their boundary; every failure mode lands in Err with
// Success=false and feeds the failure-counter logic downstream.
type Result struct {
	Success    bool
	StatusCode int
	ResponseMS int64
	Err        string

	// type specific payload
	ResolvedValue string
	KeywordFound  bool
	SSL           *SSLInfo
}

type SSLInfo struct {
	NotAfter      time.Time
	DaysRemaining int
}

func failure(responseMS int64, msg string) Result {
	return Result{
		Success:    false,
		ResponseMS: responseMS,
		Err:        msg,
	}
}
