package domain

// Session — аутентифицированный пользователь; нулевое значение означает отсутствие сессии.
type Session struct {
	UID   string
	Email string
	Name  string
}

func (s Session) Authenticated() bool { return s.UID != "" }
