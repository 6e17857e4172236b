package database

var Tabels []interface{} = []interface{}{
	&User{},
	&Session{},
	&CalendarCredential{},
	&Meeting{},
}
