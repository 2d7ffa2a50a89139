package models

// Role: роль вызывающего, полученная от провайдера идентификации.
type Role string

const (
	RoleUser   Role = "user"
	RoleMentor Role = "mentor"
	RoleAdmin  Role = "admin"
	// RoleSystem используется внутренними триггерами, например сигналом окончания встречи.
	RoleSystem Role = "system"
)

// Caller: аутентифицированный пользователь, от имени которого выполняется операция.
// Движок доверяет провайдеру идентификации и сам проверяет права поверх него.
type Caller struct {
	UserID string
	Role   Role
	Email  string
}

// Privileged сообщает, может ли вызывающий действовать над чужими сущностями.
func (c Caller) Privileged() bool {
	return c.Role == RoleAdmin || c.Role == RoleSystem
}
