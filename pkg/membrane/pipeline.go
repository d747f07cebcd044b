package membrane

// OutcomeKind classifies a ValidationOutcome, per spec §4.3.
type OutcomeKind uint8

const (
	OutcomeCachedValid OutcomeKind = iota
	OutcomeValidated
	OutcomeForeign
	OutcomeTemporalViolation
	OutcomeNull
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCachedValid:
		return "CachedValid"
	case OutcomeValidated:
		return "Validated"
	case OutcomeForeign:
		return "Foreign"
	case OutcomeNull:
		return "Null"
	default:
		return "TemporalViolation"
	}
}

// ValidationOutcome is the result of running the pipeline against a user
// address, per spec §4.3.
type ValidationOutcome struct {
	Kind      OutcomeKind
	State     SlotState
	Remaining uint64
	HasRemain bool
	ExitStage Stage
}

// CanRead and CanWrite mirror the boundary predicates named in spec §8.2's
// "can_read()/can_write()" scenario language. Null and TemporalViolation
// both forbid reads and writes; Foreign permits them (no bounds witness,
// but not a known-invalid address either).
func (o ValidationOutcome) CanRead() bool {
	return o.Kind != OutcomeTemporalViolation && o.Kind != OutcomeNull
}
func (o ValidationOutcome) CanWrite() bool { return o.CanRead() }

// Pipeline runs the seven-stage validator against arena a, consulting and
// populating a per-caller CallerHandle cache and a check-oracle for stage
// ordering. It never changes logical outcomes by reordering: only which
// stage reports ExitStage differs between orderings.
type Pipeline struct {
	arena  *Arena
	oracle *oracle
	bloom  *bloomFilter
}

// NewPipeline constructs a pipeline over arena. Its Bloom pre-filter starts
// empty: addresses the arena issued before construction are not added, only
// those later passed to noteAllocated. A Bloom miss does not end validation;
// the Arena stage still runs.
func NewPipeline(arena *Arena) *Pipeline { return NewPipelineWithConfig(arena, DefaultConfig()) }

// NewPipelineWithConfig is NewPipeline with cfg's Bloom bucket count
// applied instead of the package default, per Config.BloomBucketCount.
func NewPipelineWithConfig(arena *Arena, cfg Config) *Pipeline {
	cfg = cfg.resolve()
	return &Pipeline{arena: arena, oracle: newOracle(), bloom: newBloomFilterSized(cfg.BloomBucketCount)}
}

// noteAllocated must be called by any code path that hands out a new user
// address, keeping the Bloom stage's pre-filter in sync with the arena.
func (p *Pipeline) noteAllocated(userBase uint64) { p.bloom.add(userBase) }

// Validate runs the staged pipeline for addr using caller's per-handle
// cache, per spec §4.3/§3.4.
func (p *Pipeline) Validate(caller *CallerHandle, ctx RuntimeContext) ValidationOutcome {
	ctx.AddrHint = ctx.AddrHint // no-op, documents that addr comes from ctx
	addr := ctx.AddrHint

	order := p.oracle.orderFor(ctx.oracleKey())

	for _, stage := range order {
		switch stage {
		case StageNull:
			if addr == 0 {
				out := ValidationOutcome{Kind: OutcomeNull, State: StateUnknown, ExitStage: StageNull}
				p.oracle.observe(ctx.oracleKey(), StageNull)
				return out
			}

		case StageTlsCache:
			if caller != nil {
				if out, ok := caller.lookup(addr, p.arena.Epoch()); ok {
					out.ExitStage = StageTlsCache
					return out
				}
			}

		case StageBloom:
			if !p.bloom.mightContain(addr) {
				ctx.BloomNegative = true
			}

		case StageBounds:
			// Folded into the Arena stage below: a standalone bounds check
			// without first doing the shard lookup has nothing to check
			// against, so this stage's effect is realized at StageArena.

		case StageArena:
			slot, ok := p.arena.Lookup(addr)
			if !ok {
				out := ValidationOutcome{Kind: OutcomeForeign, State: StateUnknown, ExitStage: StageArena}
				p.oracle.observe(ctx.oracleKey(), StageArena)
				return out
			}
			if slot.State == StateQuarantined || slot.State == StateFreed {
				out := ValidationOutcome{Kind: OutcomeTemporalViolation, State: slot.State, ExitStage: StageArena}
				p.oracle.observe(ctx.oracleKey(), StageArena)
				return out
			}
			if !slot.contains(addr) {
				out := ValidationOutcome{Kind: OutcomeForeign, State: StateUnknown, ExitStage: StageBounds}
				p.oracle.observe(ctx.oracleKey(), StageBounds)
				return out
			}

			// Fingerprint stage folded in here since it needs the slot
			// already looked up.
			if !p.arena.VerifyFingerprint(addr) {
				out := ValidationOutcome{Kind: OutcomeTemporalViolation, State: StateInvalid, ExitStage: StageFingerprint}
				p.oracle.observe(ctx.oracleKey(), StageFingerprint)
				return out
			}

			out := ValidationOutcome{
				Kind:      OutcomeValidated,
				State:     StateValid,
				Remaining: slot.remaining(addr),
				HasRemain: true,
				ExitStage: StageCanary,
			}
			if caller != nil {
				caller.insert(addr, out, p.arena.Epoch())
			}
			p.oracle.observe(ctx.oracleKey(), StageCanary)
			return out

		case StageFingerprint, StageCanary:
			// Handled inline within StageArena above; a canary mismatch at
			// this point is recorded only at free time (spec §4.3 "does not
			// change the outcome of this pipeline").
		}
	}

	// Unreachable given StageArena always terminates, but keeps the
	// function total.
	return ValidationOutcome{Kind: OutcomeForeign, State: StateUnknown}
}
