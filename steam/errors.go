package steam

import "errors"

var (
	UsernameEmptyError                    = errors.New("username is empty")
	PasswordEmptyError                    = errors.New("password is empty")
	InvalidCredentialsError               = errors.New("invalid username or password")
	RequireTwoFactorError                 = errors.New("require two-factor auth")
	InvalidSessionError                   = errors.New("invalid session")
	ApiKeyNotFoundError                   = errors.New("api key not found")
	ApiAccessDeniedError                  = errors.New("access denied to steam web api")
	ConfirmationsNotFoundError            = errors.New("can't find confirmation")
	ConfirmationsDescriptionNotFoundError = errors.New("can't find confirmation description")
	CannotFindTradeOfferInfoError         = errors.New("can't find trade offer token")
	IdentitySecretEmptyError              = errors.New("identity secret is empty")
	ConfirmationWorkerStoppedError        = errors.New("confirmation worker is not running")
	NoOfferIDError                        = errors.New("no offer id included")
	OfferNotCounterableError              = errors.New("only received offers can be countered")
)

// EResultError is returned when a web api call answers with an x-eresult other than OK.
type EResultError struct {
	Op     string
	Result string
}

func (e *EResultError) Error() string {
	return "cannot " + e.Op + ": eresult " + e.Result
}
