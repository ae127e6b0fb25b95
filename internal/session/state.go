// Package session はクライアントの認証セッションとそのライフサイクルを管理する。
//
// 状態遷移:
//
//	Unauthenticated → Authenticating → Authenticated → (Expired | LoggedOut) → Unauthenticated
//
// トークンはTokenStoreに永続化され、起動時の再検証（auth.Service.Restore）で復元される。
package session

import "time"

// State はセッションの状態。
type State int

const (
	Unauthenticated State = iota
	Authenticating
	Authenticated
	Expired
	LoggedOut
)

// String は状態名を返す。
func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticating:
		return "authenticating"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	case LoggedOut:
		return "logged_out"
	default:
		return "unknown"
	}
}

// allowedTransitions は許可された状態遷移の一覧。
var allowedTransitions = map[State][]State{
	Unauthenticated: {Authenticating},
	Authenticating:  {Authenticated, Unauthenticated},
	Authenticated:   {Expired, LoggedOut},
	Expired:         {Unauthenticated},
	LoggedOut:       {Unauthenticated},
}

// CanTransition はfromからtoへの遷移が許可されているかを返す。
func CanTransition(from, to State) bool {
	for _, s := range allowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// 遷移理由
const (
	ReasonLogin         = "login"
	ReasonRegister      = "register"
	ReasonRestore       = "restore"
	ReasonAuthenticated = "authenticated"
	ReasonRejected      = "rejected"
	ReasonExpired       = "expired"
	ReasonLogout        = "logout"
	ReasonSettled       = "settled"
)

// Transition は1回の状態遷移を表す。
type Transition struct {
	From   State
	To     State
	Reason string
	At     time.Time
}
