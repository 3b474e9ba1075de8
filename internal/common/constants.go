package common

// Environment variable keys
const (
	EnvConfigFile  = "CONFIG_FILE"
	EnvMethod      = "FEATIMP_METHOD"
	EnvScoring     = "FEATIMP_SCORING"
	EnvNSplits     = "FEATIMP_N_SPLITS"
	EnvPctEmbargo  = "FEATIMP_PCT_EMBARGO"
	EnvNEstimators = "FEATIMP_N_ESTIMATORS"
	EnvMaxSamples  = "FEATIMP_MAX_SAMPLES"
	EnvNumThreads  = "FEATIMP_NUM_THREADS"
	EnvMinWLeaf    = "FEATIMP_MIN_W_LEAF"
	EnvSeed        = "FEATIMP_SEED"
	EnvDataPath    = "DATA_PATH"
	EnvMetricsFile = "METRICS_FILE"
	EnvLogLevel    = "LOG_LEVEL"
)

// Importance methods
const (
	MethodMDI = "MDI"
	MethodMDA = "MDA"
	MethodSFI = "SFI"
)

// Scoring names
const (
	ScoringNegLogLoss = "neg_log_loss"
	ScoringAccuracy   = "accuracy"
)

// Configuration defaults
const (
	DefaultMethod      = MethodSFI
	DefaultScoring     = ScoringAccuracy
	DefaultNSplits     = 10
	DefaultNEstimators = 1000
	DefaultMaxSamples  = 1.0
	DefaultNumThreads  = 24
	DefaultPctEmbargo  = 0.0
	DefaultMinWLeaf    = 0.0
	DefaultSeed        = 42
	DefaultLogLevel    = "info"
)

// Pipeline stages reported by StageError
const (
	StageValidate = "validate"
	StageSplit    = "split"
	StageFit      = "fit"
	StageScore    = "score"
	StagePermute  = "permute"
	StageDispatch = "dispatch"
)
