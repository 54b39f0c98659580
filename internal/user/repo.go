package user

import (
	"database/sql"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"shelfhub/pkg/models"
)

func CreateUser(db *sql.DB, id, username, password, role string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if role == "" {
		role = models.RoleUser
	}
	_, err = db.Exec(`INSERT INTO users(id, username, password_hash, role) VALUES(?,?,?,?)`,
		id, username, string(hash), role)
	return err
}

func VerifyLogin(db *sql.DB, username, password string) (models.User, error) {
	var u models.User
	err := db.QueryRow(`SELECT id, username, password_hash, role FROM users WHERE username = ?`, username).
		Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role)
	if err != nil {
		return models.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return models.User{}, errors.New("invalid credentials")
	}
	return u, nil
}
