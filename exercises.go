package repcheck

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknownExercise is returned for an exercise identifier the registry
// does not know.
var ErrUnknownExercise = errors.New("unknown exercise")

// ExerciseID identifies a supported exercise.
type ExerciseID string

const (
	PushUps    ExerciseID = "push-ups"
	PullUps    ExerciseID = "pull-ups"
	BenchPress ExerciseID = "bench press"
	Curls      ExerciseID = "curls"
	Crunches   ExerciseID = "crunches"
)

// Exercise bundles everything the engine needs for one movement: how to read
// a frame, how to calibrate and detect phases, and how to grade a rep.
type Exercise struct {
	ID          ExerciseID
	Name        string
	RestPhase   Phase
	ActivePhase Phase
	Direction   Direction
	// EnterFraction and ExitFraction position the hysteresis triggers as a
	// fraction of the running primary range, measured from its minimum.
	EnterFraction float64
	ExitFraction  float64
	// Channels names the secondary readings, in FrameSignal order.
	Channels []string
	Extract  SignalExtractor
	Grade    GradeFunc

	Metric MetricInfo
	Setup  SetupInfo
}

// MetricInfo describes the per-rep metric_value of an exercise.
type MetricInfo struct {
	Name        string  `json:"name"`
	Unit        string  `json:"unit,omitempty"`
	Description string  `json:"description"`
	GoodMin     float64 `json:"good_min,omitempty"`
	GoodMax     float64 `json:"good_max,omitempty"`
}

// SetupInfo is the recording guidance shown before a user films a set.
type SetupInfo struct {
	RecommendedAngle string `json:"recommended_angle"`
	Instructions     string `json:"instructions"`
}

// Registry maps exercise identifiers to their configuration.
type Registry struct {
	thresholds Thresholds
	exercises  map[ExerciseID]Exercise
}

// NewRegistry builds the five stock exercises graded with th.
func NewRegistry(th Thresholds) (*Registry, error) {
	if err := th.Validate(); err != nil {
		return nil, err
	}
	r := &Registry{
		thresholds: th,
		exercises:  make(map[ExerciseID]Exercise),
	}
	for _, ex := range stockExercises(th) {
		r.exercises[ex.ID] = ex
	}
	return r, nil
}

// DefaultRegistry builds a registry with DefaultThresholds.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultThresholds())
	if err != nil {
		panic(err)
	}
	return r
}

// Register adds or replaces an exercise.
func (r *Registry) Register(ex Exercise) error {
	if ex.ID == "" {
		return fmt.Errorf("exercise id is required")
	}
	if ex.Extract == nil || ex.Grade == nil {
		return fmt.Errorf("exercise %q: extractor and grader are required", ex.ID)
	}
	if ex.EnterFraction < 0 || ex.EnterFraction > 1 || ex.ExitFraction < 0 || ex.ExitFraction > 1 {
		return fmt.Errorf("exercise %q: threshold fractions must be within [0, 1]", ex.ID)
	}
	r.exercises[ex.ID] = ex
	return nil
}

// Thresholds returns the grading policy the stock exercises were built with.
func (r *Registry) Thresholds() Thresholds {
	return r.thresholds
}

// Lookup resolves a product name or alias, case-insensitively.
func (r *Registry) Lookup(name string) (Exercise, error) {
	id := NormalizeExerciseID(name)
	ex, ok := r.exercises[id]
	if !ok {
		return Exercise{}, fmt.Errorf("%w %q (supported: %s)", ErrUnknownExercise, name, strings.Join(r.names(), ", "))
	}
	return ex, nil
}

// Exercises returns all registered exercises sorted by display name.
func (r *Registry) Exercises() []Exercise {
	out := make([]Exercise, 0, len(r.exercises))
	for _, ex := range r.exercises {
		out = append(out, ex)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.exercises))
	for id := range r.exercises {
		names = append(names, string(id))
	}
	sort.Strings(names)
	return names
}

var exerciseAliases = map[string]ExerciseID{
	"pushups":     PushUps,
	"push ups":    PushUps,
	"pushup":      PushUps,
	"push-up":     PushUps,
	"pullups":     PullUps,
	"pull ups":    PullUps,
	"pullup":      PullUps,
	"pull-up":     PullUps,
	"bench":       BenchPress,
	"benchpress":  BenchPress,
	"bench-press": BenchPress,
	"curl":        Curls,
	"bicep curls": Curls,
	"crunch":      Crunches,
}

// NormalizeExerciseID lowercases name, maps underscores to spaces and
// resolves known aliases.
func NormalizeExerciseID(name string) ExerciseID {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.ReplaceAll(key, "_", " ")
	if id, ok := exerciseAliases[key]; ok {
		return id
	}
	return ExerciseID(key)
}

func stockExercises(th Thresholds) []Exercise {
	return []Exercise{
		{
			ID:            PushUps,
			Name:          "Push-ups",
			RestPhase:     PhaseUp,
			ActivePhase:   PhaseDown,
			Direction:     Rising,
			EnterFraction: 0.6,
			ExitFraction:  0.3,
			Channels:      []string{"flare_deg"},
			Extract:       pushupSignal(th.PushupFlareMinDeg),
			Grade:         gradePushup(th),
			Metric: MetricInfo{
				Name:        "elbow_flare_angle",
				Unit:        "degrees",
				Description: fmt.Sprintf("Median hip-shoulder-elbow angle during the descent. Above %g° indicates excessive elbow flare.", th.PushupFlareMaxDeg),
				GoodMax:     th.PushupFlareMaxDeg,
			},
			Setup: SetupInfo{
				RecommendedAngle: "Front view",
				Instructions: "Place your camera on the ground facing you from the front. " +
					"Ensure your full body is visible from head to toe. " +
					"Perform push-ups with a controlled tempo: 2 seconds down, 1 second up. " +
					"Keep your body in a straight line from head to heels.",
			},
		},
		{
			ID:            PullUps,
			Name:          "Pull-ups",
			RestPhase:     PhaseDown,
			ActivePhase:   PhaseUp,
			Direction:     Falling,
			EnterFraction: 0.3,
			ExitFraction:  0.7,
			Channels:      []string{"chin_above_bar"},
			Extract:       pullupSignal(),
			Grade:         gradePullup(),
			Metric: MetricInfo{
				Name:        "chin_above_bar",
				Description: "1 when the nose rose above the shoulder line during the pull, otherwise 0.",
				GoodMin:     1,
			},
			Setup: SetupInfo{
				RecommendedAngle: "Front view",
				Instructions: "Set your camera at arm's length in front of you, capturing from waist to above the bar. " +
					"Ensure the bar and your head are visible throughout the movement. " +
					"Start from a dead hang and pull until your chin clears the bar.",
			},
		},
		{
			ID:            BenchPress,
			Name:          "Bench Press",
			RestPhase:     PhaseUp,
			ActivePhase:   PhaseDown,
			Direction:     Rising,
			EnterFraction: 0.6,
			ExitFraction:  0.3,
			Channels:      []string{"elbow_deg"},
			Extract:       benchSignal(),
			Grade:         gradeBench(th),
			Metric: MetricInfo{
				Name:        "elbow_angle_at_bottom",
				Unit:        "degrees",
				Description: fmt.Sprintf("Elbow angle at the bottom should be %g-%g°. Full lockout (>%g°) required at the top.", th.BenchDepthMinDeg, th.BenchDepthMaxDeg, th.BenchLockoutDeg),
				GoodMin:     th.BenchDepthMinDeg,
				GoodMax:     th.BenchDepthMaxDeg,
			},
			Setup: SetupInfo{
				RecommendedAngle: "Side view",
				Instructions: "Place your camera to one side at bench height, capturing your full torso and arms. " +
					"Ensure the bar path is visible from lockout to chest. " +
					"Use a controlled tempo and full range of motion.",
			},
		},
		{
			ID:            Curls,
			Name:          "Curls",
			RestPhase:     PhaseDown,
			ActivePhase:   PhaseUp,
			Direction:     Falling,
			EnterFraction: 0.35,
			ExitFraction:  0.65,
			Channels:      []string{"elbow_deg", "upper_arm_deg"},
			Extract:       curlSignal(),
			Grade:         gradeCurl(th),
			Metric: MetricInfo{
				Name:        "range_of_motion",
				Unit:        "degrees",
				Description: fmt.Sprintf("Elbow angle range of motion should be at least %g°. Upper arm should stay stable (std deviation <= %g°).", th.CurlMinROMDeg, th.CurlMaxUpperArmStdDeg),
				GoodMin:     th.CurlMinROMDeg,
			},
			Setup: SetupInfo{
				RecommendedAngle: "Side view",
				Instructions: "Position your camera to one side, capturing your full arm from shoulder to wrist. " +
					"Stand upright and keep your elbows pinned to your sides. " +
					"Perform full range of motion: fully extend and fully contract.",
			},
		},
		{
			ID:            Crunches,
			Name:          "Crunches",
			RestPhase:     PhaseDown,
			ActivePhase:   PhaseUp,
			Direction:     Falling,
			EnterFraction: 0.35,
			ExitFraction:  0.65,
			Channels:      []string{"trunk_deg", "neck_px"},
			Extract:       crunchSignal(),
			Grade:         gradeCrunch(th),
			Metric: MetricInfo{
				Name:        "trunk_lift_angle",
				Unit:        "degrees",
				Description: fmt.Sprintf("Trunk angle from horizontal should be %g-%g°. Too little is insufficient lift, too much is a sit-up.", th.CrunchLiftMinDeg, th.CrunchLiftMaxDeg),
				GoodMin:     th.CrunchLiftMinDeg,
				GoodMax:     th.CrunchLiftMaxDeg,
			},
			Setup: SetupInfo{
				RecommendedAngle: "Side view",
				Instructions: "Lie on your back and place the camera to one side at floor level. " +
					"Ensure your head, shoulders, and hips are visible. " +
					"Perform controlled crunches: lift the shoulders, don't pull your neck.",
			},
		},
	}
}

// CatalogEntry is the public description of a supported exercise.
type CatalogEntry struct {
	ID     ExerciseID `json:"id"`
	Name   string     `json:"name"`
	Setup  SetupInfo  `json:"setup"`
	Metric MetricInfo `json:"metric"`
}

// Catalog lists the registered exercises for an exercise picker.
func (r *Registry) Catalog() []CatalogEntry {
	exercises := r.Exercises()
	out := make([]CatalogEntry, 0, len(exercises))
	for _, ex := range exercises {
		out = append(out, CatalogEntry{
			ID:     ex.ID,
			Name:   ex.Name,
			Setup:  ex.Setup,
			Metric: ex.Metric,
		})
	}
	return out
}
