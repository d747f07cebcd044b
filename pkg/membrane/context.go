package membrane

// ApiFamily tags the ABI family a call belongs to, per spec §3.5.
type ApiFamily uint8

const (
	FamilyAllocator ApiFamily = iota
	FamilyStdio
	FamilyIoFd
	FamilyStdlib
	FamilyPointerValidation
	FamilyStringMemory
	FamilyThreading
	FamilyResolver
	FamilyMathFenv
	FamilyLoader
	FamilyCtype
	FamilyTime
	FamilySignal
	FamilySocket
	FamilyLocale
	FamilyTermios
	FamilyInet
	FamilyProcess
	FamilyVirtualMemory
	FamilyPoll

	numFamilies
)

func (f ApiFamily) String() string {
	names := [...]string{
		"Allocator", "Stdio", "IoFd", "Stdlib", "PointerValidation",
		"StringMemory", "Threading", "Resolver", "MathFenv", "Loader",
		"Ctype", "Time", "Signal", "Socket", "Locale", "Termios", "Inet",
		"Process", "VirtualMemory", "Poll",
	}
	if int(f) < len(names) {
		return names[f]
	}
	return "Unknown"
}

// ValidationProfile is the depth of validation decide requires for any
// pointer argument, per spec §3.6.
type ValidationProfile uint8

const (
	ProfileFast ValidationProfile = iota
	ProfileFull
)

func (p ValidationProfile) String() string {
	if p == ProfileFull {
		return "Full"
	}
	return "Fast"
}

// RepairKind enumerates the distinguishable repair behaviours, per
// spec §4.4. The taxonomy is open for extension; these are the kinds the
// decision law and ABI adapters must distinguish today.
type RepairKind uint8

const (
	RepairNone RepairKind = iota
	RepairIgnoreDoubleFree
	RepairIgnoreForeignFree
	RepairReallocAsMalloc
	RepairClampSize
	RepairReturnSafeDefault
	RepairUpgradeToSafeVariant
)

func (k RepairKind) String() string {
	switch k {
	case RepairIgnoreDoubleFree:
		return "IgnoreDoubleFree"
	case RepairIgnoreForeignFree:
		return "IgnoreForeignFree"
	case RepairReallocAsMalloc:
		return "ReallocAsMalloc"
	case RepairClampSize:
		return "ClampSize"
	case RepairReturnSafeDefault:
		return "ReturnSafeDefault"
	case RepairUpgradeToSafeVariant:
		return "UpgradeToSafeVariant"
	default:
		return "None"
	}
}

// Action is the decision's directive to the calling ABI adapter, per
// spec §3.6.
type Action uint8

const (
	ActionAllow Action = iota
	ActionFullValidate
	ActionRepair
	ActionDeny
)

func (a Action) String() string {
	switch a {
	case ActionFullValidate:
		return "FullValidate"
	case ActionRepair:
		return "Repair"
	case ActionDeny:
		return "Deny"
	default:
		return "Allow"
	}
}

// Mode is one of the three process-immutable safety modes, per spec §4.4.
type Mode uint8

const (
	ModeOff Mode = iota
	ModeStrict
	ModeHardened
)

func (m Mode) String() string {
	switch m {
	case ModeStrict:
		return "Strict"
	case ModeHardened:
		return "Hardened"
	default:
		return "Off"
	}
}

// RuntimeContext is consumed by Kernel.Decide, per spec §3.5.
type RuntimeContext struct {
	Family         ApiFamily
	AddrHint       uint64
	RequestedBytes uint64
	IsWrite        bool
	ContentionHint uint32
	BloomNegative  bool

	// Aligned and RecentPage feed the check-oracle's context key, per
	// spec §4.3's "(family, aligned?, recent_page?)".
	Aligned    bool
	RecentPage bool

	// ReallocForeign is set by the realloc ABI adapter when the target
	// pointer is not membrane-owned, per spec §4.4.
	ReallocForeign bool
}

// oracleKey derives the check-oracle context key (family, aligned?,
// recent_page?), per spec §4.3.
func (c RuntimeContext) oracleKey() oracleContext {
	return oracleContext{family: c.Family, aligned: c.Aligned, recentPage: c.RecentPage}
}

// PolicyID packs (mode, family, profile, action) into a single 32-bit tag
// for post-hoc trace correlation, per spec §3.6.
type PolicyID uint32

func packPolicyID(mode Mode, family ApiFamily, profile ValidationProfile, action Action) PolicyID {
	return PolicyID(uint32(mode)<<24 | uint32(family)<<16 | uint32(profile)<<8 | uint32(action))
}

// RuntimeDecision is returned by Kernel.Decide, per spec §3.6.
type RuntimeDecision struct {
	Profile        ValidationProfile
	Action         Action
	Repair         RepairKind
	ReallocSize    uint64 // populated when Repair == RepairReallocAsMalloc
	ClampRequested uint64 // populated when Repair == RepairClampSize
	ClampClamped   uint64
	PolicyID       PolicyID
	RiskUpperBoundPPM int64
}
