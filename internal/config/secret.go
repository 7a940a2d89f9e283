package config

// ROT13 is the letter substitution used for MYSQL_PASSWORD. It only keeps the
// literal password out of the config file; anyone holding the file can undo
// it. Applying it twice returns the input.
func ROT13(s string) string {
	out := []rune(s)
	for i, r := range out {
		switch {
		case r >= 'a' && r <= 'z':
			out[i] = 'a' + (r-'a'+13)%26
		case r >= 'A' && r <= 'Z':
			out[i] = 'A' + (r-'A'+13)%26
		}
	}
	return string(out)
}

// PlainPassword reveals the stored password.
func (m MySQLConfig) PlainPassword() string {
	return ROT13(m.Password)
}
