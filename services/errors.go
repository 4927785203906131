package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ошибки валидации и бизнес-правил
	ErrValidationFailed        = errors.New("validation failed")
	ErrPasswordTooShort        = errors.New("password is too short")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrDateInPast              = errors.New("match date cannot be in the past")
	ErrInvalidMatchFormat      = errors.New("match format must be time limited or score limited")
	ErrInvalidTournamentFormat = errors.New("tournament format must be Knockout or League")

	// Ошибки движка матчей и турниров
	ErrDuplicateProfile         = errors.New("a player profile with this name already exists")
	ErrProfileLinked            = errors.New("player profile is linked to a user account")
	ErrParticipantResolution    = errors.New("match participant could not be resolved")
	ErrProfileCreation          = errors.New("player profile could not be created")
	ErrMatchCreation            = errors.New("match could not be created")
	ErrNoActiveMatches          = errors.New("tournament has no unfinished matches")
	ErrInsufficientParticipants = errors.New("not enough participants")
	ErrInvalidBracketSize       = errors.New("knockout bracket size must be a power of two")
	ErrUndecidedMatch           = errors.New("knockout match ended without a single winner")
	ErrStaleRound               = errors.New("tournament round has already advanced")
	ErrMatchFinished            = errors.New("match is already finished")
	ErrNotParticipant           = errors.New("player does not participate in this match")
	ErrNegativeScore            = errors.New("score cannot become negative")
	ErrTournamentConcluded      = errors.New("tournament is already concluded")
	ErrNotKnockout              = errors.New("operation requires a knockout tournament")
	ErrNotLeague                = errors.New("operation requires a league tournament")
	ErrBracketManaged           = errors.New("knockout matches are created and finished by advancing the tournament round")

	// Ошибки конфликтов
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserUsernameConflict = errors.New("username is already in use")
	ErrClaimDuplicate       = errors.New("an identical claim request is already pending")
	ErrClaimHandled         = errors.New("claim request is already handled")
	ErrAlreadyDirector      = errors.New("user is already a director")
	ErrUserAlreadyLinked    = errors.New("user already owns a player profile")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound       = errors.New("user not found")
	ErrPlayerNotFound     = errors.New("player profile not found")
	ErrMatchNotFound      = errors.New("match not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrClaimNotFound      = errors.New("claim request not found")

	// Загрузка файлов
	ErrUploadsDisabled  = errors.New("file uploads are not configured")
	ErrUnsupportedImage = errors.New("unsupported image content type")
)
