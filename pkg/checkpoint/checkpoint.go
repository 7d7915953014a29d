package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"profilescout/pkg/logger"
	"profilescout/pkg/models"
)

// CurrentVersion is written into every new checkpoint
const CurrentVersion = 1

// Checkpoint represents the state of an interrupted discovery run
type Checkpoint struct {
	PlanID           string            `json:"plan_id"`
	CompletedQueries []string          `json:"completed_queries"`
	Profiles         []models.Profile  `json:"profiles"`
	Summary          models.RunSummary `json:"summary"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
	Version          int               `json:"version"`
}

// Manager handles checkpoint operations
type Manager struct {
	checkpointPath string
	logger         logger.Logger
	now            func() time.Time
}

// PlanID fingerprints a query plan. Checkpoints only resume runs with the same plan.
func PlanID(plan []models.Query) string {
	h := sha256.New()
	for _, q := range plan {
		io.WriteString(h, q.Key())
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// NewManager creates a checkpoint manager storing its file under the user data
// directory, named after the plan fingerprint
func NewManager(planID string) (*Manager, error) {
	dataDir, err := getDataDirectory()
	if err != nil {
		return nil, fmt.Errorf("failed to get data directory: %w", err)
	}

	checkpointsDir := filepath.Join(dataDir, "checkpoints")
	if err := os.MkdirAll(checkpointsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoints directory: %w", err)
	}

	return NewManagerAt(filepath.Join(checkpointsDir, fmt.Sprintf("%s.checkpoint.json", planID))), nil
}

// NewManagerAt creates a checkpoint manager for an explicit file path
func NewManagerAt(path string) *Manager {
	return &Manager{
		checkpointPath: path,
		logger:         logger.GetLogger(),
		now:            time.Now,
	}
}

// Path returns the checkpoint file location
func (m *Manager) Path() string {
	return m.checkpointPath
}

// Create returns an empty checkpoint for the given plan. Nothing is written until Save.
func (m *Manager) Create(planID string) *Checkpoint {
	now := m.now()
	return &Checkpoint{
		PlanID:    planID,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   CurrentVersion,
	}
}

// Load loads an existing checkpoint. A missing file yields nil, nil.
func (m *Manager) Load() (*Checkpoint, error) {
	file, err := os.Open(m.checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open checkpoint file: %w", err)
	}
	defer file.Close()

	var checkpoint Checkpoint
	if err := json.NewDecoder(file).Decode(&checkpoint); err != nil {
		return nil, fmt.Errorf("failed to decode checkpoint: %w", err)
	}
	if checkpoint.Version > CurrentVersion {
		return nil, fmt.Errorf("checkpoint version %d is newer than supported version %d", checkpoint.Version, CurrentVersion)
	}

	m.logger.InfoWithFields("Checkpoint loaded", map[string]interface{}{
		"plan_id":           checkpoint.PlanID,
		"completed_queries": len(checkpoint.CompletedQueries),
		"profiles":          len(checkpoint.Profiles),
		"updated_at":        checkpoint.UpdatedAt,
	})

	return &checkpoint, nil
}

// Save saves the checkpoint to disk atomically
func (m *Manager) Save(checkpoint *Checkpoint) error {
	checkpoint.UpdatedAt = m.now()

	if err := os.MkdirAll(filepath.Dir(m.checkpointPath), 0755); err != nil {
		return fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	tempPath := m.checkpointPath + ".tmp"
	file, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("failed to create temporary checkpoint file: %w", err)
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(checkpoint); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}

	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync checkpoint file: %w", err)
	}

	if err := file.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to close checkpoint file: %w", err)
	}

	if err := os.Rename(tempPath, m.checkpointPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to replace checkpoint file: %w", err)
	}

	m.logger.DebugWithFields("Checkpoint saved", map[string]interface{}{
		"plan_id":           checkpoint.PlanID,
		"completed_queries": len(checkpoint.CompletedQueries),
		"profiles":          len(checkpoint.Profiles),
	})

	return nil
}

// Delete removes the checkpoint file
func (m *Manager) Delete() error {
	if err := os.Remove(m.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	m.logger.Debug("Checkpoint deleted")
	return nil
}

// Exists checks if a checkpoint file exists
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.checkpointPath)
	return err == nil
}

// Record marks a query as processed and stores the run state reached after it
func (m *Manager) Record(checkpoint *Checkpoint, q models.Query, profiles []models.Profile, summary models.RunSummary) error {
	if !checkpoint.IsCompleted(q) {
		checkpoint.CompletedQueries = append(checkpoint.CompletedQueries, q.Key())
	}
	checkpoint.Profiles = profiles
	checkpoint.Summary = summary
	return m.Save(checkpoint)
}

// IsCompleted checks if a query was processed before the interruption
func (checkpoint *Checkpoint) IsCompleted(q models.Query) bool {
	key := q.Key()
	for _, done := range checkpoint.CompletedQueries {
		if done == key {
			return true
		}
	}
	return false
}

// ProfileURLs returns the identities of the saved profiles
func (checkpoint *Checkpoint) ProfileURLs() []string {
	urls := make([]string, len(checkpoint.Profiles))
	for i, p := range checkpoint.Profiles {
		urls[i] = p.ProfileURL
	}
	return urls
}

// GetCheckpointInfo returns a summary of the checkpoint
func (m *Manager) GetCheckpointInfo() (map[string]interface{}, error) {
	checkpoint, err := m.Load()
	if err != nil {
		return nil, err
	}
	if checkpoint == nil {
		return nil, nil
	}

	return map[string]interface{}{
		"plan_id":           checkpoint.PlanID,
		"completed_queries": len(checkpoint.CompletedQueries),
		"profiles":          len(checkpoint.Profiles),
		"created_at":        checkpoint.CreatedAt,
		"updated_at":        checkpoint.UpdatedAt,
		"age":               m.now().Sub(checkpoint.UpdatedAt),
	}, nil
}

// getDataDirectory returns the appropriate data directory for the current OS
func getDataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "profilescout")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "profilescout")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "profilescout")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "profilescout")
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	return dataDir, nil
}
