package query

// The full set of named queries the persistence gateway dispatches. The
// UPDATE statements whose natural call order (key first) differs from the
// SQL column order carry an explicit parameter order.
var (
	SavePendingUser = New("save_pending_user", ShapeNone,
		`insert into pending_users
		 (email, password, registration_key, registration_date)
		 values (?, ?, ?, ?)`, nil)

	GetPendingUser = New("get_pending_user", ShapeOneRow,
		`select email, password, registration_key, registration_date
		 from pending_users where email = ?`, nil)

	DeletePendingUser = New("delete_pending_user", ShapeNone,
		`delete from pending_users where email = ?`, nil)

	GetPendingUsersUnmailed = New("get_pending_users_unmailed", ShapeRows,
		`select email, registration_key from pending_users
		 where confirmation_sent = false`, nil)

	SetPendingUserAsMailed = New("set_pending_user_as_mailed", ShapeNone,
		`update pending_users
		 set confirmation_sent = true where email = ?`, nil)

	GetPendingUserByKey = New("get_pending_user_by_key", ShapeOneRow,
		`select email, password from pending_users
		 where registration_key = ?`, nil)

	GetPendingUsersRegisteredBefore = New("get_pending_users_registered_before", ShapeOneColumn,
		`select email from pending_users
		 where registration_date < ?`, nil)

	SaveUser = New("save_user", ShapeNone,
		`insert into users (email, password) values (?, ?)`, nil)

	GetUser = New("get_user", ShapeOneRow,
		`select email, password, failed_login_attempts, suspended_until
		 from users where email = ?`, nil)

	SuspendUser = New("suspend_user", ShapeNone,
		`update users
		 set failed_login_attempts = ?, suspended_until = ?
		 where email = ?`, []int{1, 2, 0})

	SetFailedLoginAttempts = New("set_failed_login_attempts", ShapeNone,
		`update users
		 set failed_login_attempts = ?
		 where email = ?`, []int{1, 0})

	LiftUserSuspension = New("lift_user_suspension", ShapeNone,
		`update users
		 set suspended_until = NULL, failed_login_attempts = 0
		 where email = ?`, nil)

	SetUserRole = New("set_user_role", ShapeNone,
		`update users set role = ? where email = ?`, []int{1, 0})

	GetUserRole = New("get_user_role", ShapeUnique,
		`select role from users where email = ?`, nil)
)

// All returns every registered descriptor. Used by tests to check
// registry-wide invariants.
func All() []*Query {
	return []*Query{
		SavePendingUser,
		GetPendingUser,
		DeletePendingUser,
		GetPendingUsersUnmailed,
		SetPendingUserAsMailed,
		GetPendingUserByKey,
		GetPendingUsersRegisteredBefore,
		SaveUser,
		GetUser,
		SuspendUser,
		SetFailedLoginAttempts,
		LiftUserSuspension,
		SetUserRole,
		GetUserRole,
	}
}
