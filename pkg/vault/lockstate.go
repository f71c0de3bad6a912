package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Unlock cooldowns: 5 failures wait 30s, 10 wait 5m, 20 wait 30m.
const (
	CooldownThreshold1 = 5
	CooldownThreshold2 = 10
	CooldownThreshold3 = 20

	CooldownDuration1 = 30 * time.Second
	CooldownDuration2 = 5 * time.Minute
	CooldownDuration3 = 30 * time.Minute
)

var (
	ErrTooManyAttempts = errors.New("vault: too many failed unlock attempts")
	ErrCooldownActive  = errors.New("vault: cooldown period active")
)

// LockState tracks failed unlock attempts between runs.
type LockState struct {
	FailedAttempts int       `json:"failed_attempts"`
	LastAttempt    time.Time `json:"last_attempt"`
	CooldownUntil  time.Time `json:"cooldown_until"`
}

func (v *Vault) loadLockState() (*LockState, error) {
	data, err := os.ReadFile(filepath.Join(v.path, LockFileName))
	if errors.Is(err, os.ErrNotExist) {
		return &LockState{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("vault: failed to read lock state: %w", err)
	}

	var state LockState
	if err := json.Unmarshal(data, &state); err != nil {
		v.logger.Warn("resetting corrupted lock state", "error", err)
		return &LockState{}, nil
	}
	return &state, nil
}

func (v *Vault) saveLockState(state *LockState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("vault: failed to marshal lock state: %w", err)
	}
	if err := os.WriteFile(filepath.Join(v.path, LockFileName), data, FileMode); err != nil {
		return fmt.Errorf("vault: failed to write lock state: %w", err)
	}
	return nil
}

// clearLockState removes the lock file and returns how many failed
// attempts it held.
func (v *Vault) clearLockState() (int, error) {
	state, err := v.loadLockState()
	if err != nil {
		return 0, err
	}
	err = os.Remove(filepath.Join(v.path, LockFileName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return state.FailedAttempts, fmt.Errorf("vault: failed to clear lock state: %w", err)
	}
	return state.FailedAttempts, nil
}

func (v *Vault) checkCooldown() error {
	state, err := v.loadLockState()
	if err != nil {
		return err
	}
	now := v.clock.Now()
	if now.Before(state.CooldownUntil) {
		remaining := state.CooldownUntil.Sub(now).Round(time.Second)
		return fmt.Errorf("%w: please wait %v", ErrCooldownActive, remaining)
	}
	return nil
}

// recordFailedAttempt counts a wrong password and returns the error to
// report: ErrTooManyAttempts when this failure started a cooldown,
// ErrInvalidPassword otherwise.
func (v *Vault) recordFailedAttempt() error {
	state, err := v.loadLockState()
	if err != nil {
		v.logger.Warn("failed to record unlock attempt", "error", err)
		return ErrInvalidPassword
	}

	now := v.clock.Now()
	state.FailedAttempts++
	state.LastAttempt = now

	var cooldown time.Duration
	switch {
	case state.FailedAttempts >= CooldownThreshold3:
		cooldown = CooldownDuration3
	case state.FailedAttempts >= CooldownThreshold2:
		cooldown = CooldownDuration2
	case state.FailedAttempts >= CooldownThreshold1:
		cooldown = CooldownDuration1
	}
	if cooldown > 0 {
		state.CooldownUntil = now.Add(cooldown)
	}

	if err := v.saveLockState(state); err != nil {
		v.logger.Warn("failed to record unlock attempt", "error", err)
	}
	if cooldown > 0 {
		return fmt.Errorf("%w (%v): %w", ErrTooManyAttempts, cooldown, ErrInvalidPassword)
	}
	return ErrInvalidPassword
}

// RemainingCooldown returns how long Unlock will keep refusing, or 0.
func (v *Vault) RemainingCooldown() time.Duration {
	state, err := v.loadLockState()
	if err != nil {
		return 0
	}
	if now := v.clock.Now(); now.Before(state.CooldownUntil) {
		return state.CooldownUntil.Sub(now)
	}
	return 0
}
