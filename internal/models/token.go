package models

import (
	"time"

	"github.com/google/uuid"
)

// TokenPair — пара токенов, выдаваемая при входе и ротации.
//   - AccessToken — короткоживущий JWT для доступа к API;
//   - RefreshToken — долгоживущий JWT для выпуска новой пары;
//     на записи пользователя хранится только его хэш.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// Identity — личность, извлечённая из проверенного access-токена.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	Username string
}
