package service

import "time"

// LoginState es la porcion del usuario que gobierna el bloqueo por intentos.
type LoginState struct {
	Attempts  int
	LockUntil *time.Time
}

// LockoutPolicy bloquea la cuenta tras MaxAttempts fallos consecutivos.
type LockoutPolicy struct {
	MaxAttempts int
	Duration    time.Duration
}

func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{MaxAttempts: 5, Duration: 2 * time.Hour}
}

// Locked reporta si hay un bloqueo vigente.
func (p LockoutPolicy) Locked(st LoginState, now time.Time) bool {
	return st.LockUntil != nil && st.LockUntil.After(now)
}

// Failure aplica un intento fallido. Un bloqueo vencido reinicia el contador a 1.
func (p LockoutPolicy) Failure(st LoginState, now time.Time) LoginState {
	if st.LockUntil != nil && !st.LockUntil.After(now) {
		return LoginState{Attempts: 1}
	}
	next := LoginState{Attempts: st.Attempts + 1, LockUntil: st.LockUntil}
	if next.Attempts >= p.MaxAttempts && next.LockUntil == nil {
		until := now.Add(p.Duration)
		next.LockUntil = &until
	}
	return next
}

// Success limpia contador y bloqueo.
func (p LockoutPolicy) Success() LoginState {
	return LoginState{}
}
