package model

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Pairing is one scheduled event and the dose it was matched to, if any.
type Pairing struct {
	Scheduled float64  `json:"scheduled"`
	Dose      *float64 `json:"dose,omitempty"`
}

func (p Pairing) Matched() bool {
	return p.Dose != nil
}

type MatchParameters struct {
	PopulationSize int     `json:"population_size"`
	Alpha          float64 `json:"alpha"`
	Beta           float64 `json:"beta"`
	Gamma          float64 `json:"gamma"`
	Iota           float64 `json:"iota"`
	Eta            float64 `json:"eta"`
	Chi            float64 `json:"chi"`
	Mu             float64 `json:"mu"`
	Kappa          float64 `json:"kappa"`
	MaxIterations  int     `json:"max_iterations"`
	Seed           int64   `json:"seed"`
	Workers        int     `json:"workers"`
	MaxRestarts    int     `json:"max_restarts"`
	Selection      string  `json:"selection"`
	TournamentSize int     `json:"tournament_size,omitempty"`
	StopOnPerfect  bool    `json:"stop_on_perfect"`
}

type GenerationDiagnostics struct {
	Generation    int     `json:"generation"`
	BestCost      float64 `json:"best_cost"`
	MeanCost      float64 `json:"mean_cost"`
	WorstCost     float64 `json:"worst_cost"`
	BestFitness   float64 `json:"best_fitness"`
	MeanFitness   float64 `json:"mean_fitness"`
	InvalidCount  int     `json:"invalid_count"`
	DistinctCount int     `json:"distinct_count"`
}

// RunRecord is the report of one finished matcher run.
type RunRecord struct {
	VersionedRecord
	ID              string          `json:"id"`
	CreatedAtUTC    string          `json:"created_at_utc"`
	Scheduled       []float64       `json:"scheduled"`
	Doses           []float64       `json:"doses"`
	Parameters      MatchParameters `json:"parameters"`
	Generations     int             `json:"generations"`
	Restarts        int             `json:"restarts"`
	InitialBestCost float64         `json:"initial_best_cost"`
	BestCost        float64         `json:"best_cost"`
	BestChromosome  string          `json:"best_chromosome"`
	Solved          bool            `json:"solved"`
	Pairings        []Pairing       `json:"pairings"`
}
