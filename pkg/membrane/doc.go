// Package membrane implements the generational arena with quarantine, the
// staged validation pipeline, and the online decision kernel that together
// form the safety membrane interposed between foreign C code and the
// underlying operating system.
//
// The three subsystems compose as:
//
//	Kernel.Allocate/Free  -> Arena (sharded, generational, quarantined)
//	Kernel.Pipeline       -> Pipeline (seven-stage validator, oracle-ordered)
//	Kernel.Decide/Observe -> fusion layer, budget controller, FDR audit
//
// Every ABI entry point (see pkg/abi) follows the same six-step contract:
// build a RuntimeContext, call Decide, honor Deny/Repair, run the pipeline
// when the profile is Full, perform the body, then call Observe.
package membrane
