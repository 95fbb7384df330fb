package identity

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/nyaruka/phonenumbers"
)

type Middleware interface {
	ProtectedRoute(cfg Config, errorHandler func(router.Context, error) error) router.MiddlewareFunc
	AccountResolver() router.MiddlewareFunc
}

// GetRouterSession reads the claims the JWT middleware stored in the router
// locals and decodes them into a session.
func GetRouterSession(c router.Context, key string) (*SessionObject, error) {
	local := c.Locals(key)
	if local == nil {
		return nil, ErrUnableToFindSession
	}

	claims, ok := local.(AuthClaims)
	if !ok {
		return nil, ErrUnableToDecodeSession
	}

	return sessionFromAuthClaims(claims)
}

func RegisterAuthRoutes[T any](app router.Router[T], opts ...AuthControllerOption) {

	controller := NewAuthController(opts...)

	app.Post(controller.Routes.Register, controller.RegistrationCreate).
		SetName("register.post")

	app.Post(controller.Routes.Confirm, controller.ConfirmPost).
		SetName("confirm.post")
	app.Post(controller.Routes.ConfirmResend, controller.ConfirmResendPost).
		SetName("confirm-resend.post")

	app.Post(controller.Routes.Login, controller.LoginPost).
		SetName("sign-in.post")
	app.Get(controller.Routes.Logout, controller.LogOut).
		SetName("sign-out.get")

	app.Post(controller.Routes.PasswordReset, controller.PasswordResetPost).
		SetName("pwd-reset.post")
	app.Get(fmt.Sprintf("%s/:code", controller.Routes.PasswordReset), controller.PasswordResetValidate).
		SetName("pwd-reset-validate.get")
	app.Post(fmt.Sprintf("%s/:code", controller.Routes.PasswordReset), controller.PasswordResetExecute).
		SetName("pwd-reset-do.post")

	protected := controller.Auther.ProtectedRoute(controller.Config, controller.AuthErrorHandler)
	resolver := controller.Auther.AccountResolver()

	app.Post(controller.Routes.PasswordChange, controller.PasswordChangePost, protected, resolver).
		SetName("pwd-change.post")

	app.Get(controller.Routes.Profile, controller.ProfileShow, protected, resolver).
		SetName("profile.get")
	app.Put(controller.Routes.Profile, controller.ProfileUpdate, protected, resolver).
		SetName("profile.put")
}

type AuthControllerRoutes struct {
	Login          string
	Logout         string
	Register       string
	Confirm        string
	ConfirmResend  string
	PasswordReset  string
	PasswordChange string
	Profile        string
}

type AuthController struct {
	Debug            bool
	UseHashid        bool
	Logger           Logger
	Repo             RepositoryManager
	Mailer           Mailer
	Config           Config
	Routes           *AuthControllerRoutes
	Auther           HTTPAuthenticator
	Activity         ActivitySink
	AuthErrorHandler func(c router.Context, err error) error
}

type AuthControllerOption func(*AuthController) *AuthController

func NewAuthController(opts ...AuthControllerOption) *AuthController {
	c := &AuthController{
		Logger: defLogger{},
		Routes: &AuthControllerRoutes{
			Login:          "/login",
			Logout:         "/logout",
			Register:       "/register",
			Confirm:        "/confirm",
			ConfirmResend:  "/confirm/resend",
			PasswordReset:  "/password-reset",
			PasswordChange: "/password-change",
			Profile:        "/profile",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in auth controller...")
	}

	if c.Auther == nil {
		panic("Missing HTTPAuthenticator in auth controller...")
	}

	if c.Config == nil {
		panic("Missing Config in auth controller...")
	}

	c.Mailer = normalizeMailer(c.Mailer, c.Logger)

	if c.AuthErrorHandler == nil {
		c.AuthErrorHandler = func(ctx router.Context, err error) error {
			return renderError(ctx, err)
		}
	}

	return c
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *AuthController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= AUTH LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(payload))
		fmt.Println("=========================")
	}

	token, err := a.Auther.Login(ctx, payload)
	if err != nil {
		a.Logger.Error("login error: ", "error", err)
		return renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"token": token,
	})
}

func (a *AuthController) LogOut(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(fiber.StatusOK, map[string]string{
		"status": "signed_out",
	})
}

// RegistrationCreatePayload is the registration payload
type RegistrationCreatePayload struct {
	Name            string `form:"name" json:"name"`
	Email           string `form:"email" json:"email"`
	Phone           string `form:"phone_number" json:"phone_number"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber("US"))),
		validation.Field(&r.Password, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) RegistrationCreate(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("register account parse payload: ", "error", err)
		return renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("register account validate payload: ", "error", err)
		return renderValidationError(ctx, err)
	}

	var res *RegisterAccountResponse

	req := RegisterAccountMessage{
		Name:      payload.Name,
		Email:     payload.Email,
		Phone:     payload.Phone,
		Password:  payload.Password,
		UseHashid: a.UseHashid,
		OnResponse: func(resp *RegisterAccountResponse) {
			res = resp
		},
	}

	registerAccount := NewRegisterAccountHandler(a.Repo, a.Mailer).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)
	if err := registerAccount.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("register account error: ", "error", err)
		return renderError(ctx, err)
	}

	body := map[string]any{
		"status": "registered",
	}
	if res != nil && res.Account != nil {
		body["account_id"] = res.Account.ID.String()
		body["email"] = res.Account.Email
	}

	return ctx.JSON(fiber.StatusCreated, body)
}

// ConfirmPayload carries the emailed verification code
type ConfirmPayload struct {
	Code string `form:"code" json:"code"`
}

// Validate will validate the payload
func (r ConfirmPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Code,
			validation.Required,
			validation.Length(VerificationCodeLength, VerificationCodeLength),
			is.Hexadecimal,
		),
	)
}

func (a *AuthController) ConfirmPost(ctx router.Context) error {
	payload := new(ConfirmPayload)

	if err := ctx.Bind(payload); err != nil {
		return renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(ctx, err)
	}

	confirm := NewConfirmAccountHandler(a.Repo).
		WithTokenTTL(a.Config.GetVerificationTokenTTL()).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := confirm.Execute(ctx.Context(), ConfirmAccountMessage{Code: payload.Code}); err != nil {
		a.Logger.Error("confirm account error: ", "error", err)
		return renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]string{
		"status": "confirmed",
	})
}

// ConfirmResendPayload requests a fresh confirmation code
type ConfirmResendPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r ConfirmResendPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

func (a *AuthController) ConfirmResendPost(ctx router.Context) error {
	payload := new(ConfirmResendPayload)

	if err := ctx.Bind(payload); err != nil {
		return renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(ctx, err)
	}

	resend := NewRequestConfirmationCodeHandler(a.Repo, a.Mailer).WithLogger(a.Logger)
	if err := resend.Execute(ctx.Context(), RequestConfirmationCodeMessage{Email: payload.Email}); err != nil {
		a.Logger.Error("resend confirmation error: ", "error", err)
		return renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusAccepted, map[string]string{
		"status": "confirmation_sent",
	})
}

// PasswordResetRequestPayload holds values for password reset
type PasswordResetRequestPayload struct {
	Email string `form:"email" json:"email"`
}

// Validate will validate the payload
func (r PasswordResetRequestPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Email,
			validation.Required,
			is.Email,
		),
	)
}

func (a *AuthController) PasswordResetPost(ctx router.Context) error {
	payload := new(PasswordResetRequestPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: ", "error", err)
		return renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: ", "error", err)
		return renderValidationError(ctx, err)
	}

	var res *InitializePasswordResetResponse

	req := InitializePasswordResetMessage{
		Email: payload.Email,
		OnResponse: func(resp *InitializePasswordResetResponse) {
			res = resp
		},
	}

	initPwdReset := NewInitializePasswordResetHandler(a.Repo, a.Mailer).WithLogger(a.Logger)

	if err := initPwdReset.Execute(ctx.Context(), req); err != nil {
		a.Logger.Error("password reset error: ", "error", err)
		return renderError(ctx, err)
	}

	if a.Debug {
		fmt.Println("================")
		fmt.Println(print.MaybePrettyJSON(res))
		fmt.Println("================")
	}

	return ctx.JSON(fiber.StatusAccepted, map[string]any{
		"status": "reset_initialized",
	})
}

func (a *AuthController) PasswordResetValidate(ctx router.Context) error {
	code := ctx.Param("code", "")

	validate := NewValidateResetTokenHandler(a.Repo).
		WithTokenTTL(a.Config.GetVerificationTokenTTL())

	err := validate.Execute(ctx.Context(), ValidateResetTokenMessage{Code: code})
	if err == nil {
		return ctx.JSON(fiber.StatusOK, map[string]any{
			"valid": true,
		})
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		switch richErr.TextCode {
		case TextCodeInvalidToken, TextCodeTokenExpired:
			return ctx.JSON(fiber.StatusOK, map[string]any{
				"valid":     false,
				"text_code": richErr.TextCode,
			})
		}
	}

	a.Logger.Error("validate reset token error: ", "error", err)
	return renderError(ctx, err)
}

// PasswordResetVerifyPayload holds values for password reset
type PasswordResetVerifyPayload struct {
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r PasswordResetVerifyPayload) Validate() error {

	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Password,
			validation.Required,
			validation.Length(10, 100),
		),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *AuthController) PasswordResetExecute(ctx router.Context) error {
	code := ctx.Param("code")

	payload := new(PasswordResetVerifyPayload)

	if err := ctx.Bind(payload); err != nil {
		a.Logger.Error("password reset parse payload: ", "error", err)
		return renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		a.Logger.Error("password reset validate payload: ", "error", err)
		return renderValidationError(ctx, err)
	}

	input := FinalizePasswordResetMessage{
		Code:     code,
		Password: payload.Password,
	}

	finalizePwdReset := NewFinalizePasswordResetHandler(a.Repo).
		WithTokenTTL(a.Config.GetVerificationTokenTTL()).
		WithActivitySink(a.Activity).
		WithLogger(a.Logger)

	if err := finalizePwdReset.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("finalize password reset error: ", "error", err)
		return renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]string{
		"status": "password_updated",
	})
}

// ChangePasswordPayload rotates the password of a signed-in account
type ChangePasswordPayload struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r ChangePasswordPayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.CurrentPassword, validation.Required),
		validation.Field(&r.NewPassword, validation.Required, validation.Length(10, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.Length(10, 100),
			validation.By(ValidateStringEquals(r.NewPassword)),
		),
	)
}

func (a *AuthController) PasswordChangePost(ctx router.Context) error {
	account, ok := FromContext(ctx.Context())
	if !ok {
		return a.AuthErrorHandler(ctx, ErrUnableToFindSession)
	}

	payload := new(ChangePasswordPayload)

	if err := ctx.Bind(payload); err != nil {
		return renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(ctx, err)
	}

	change := NewChangePasswordHandler(a.Repo)
	input := ChangePasswordMessage{
		AccountID:       account.ID,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	}

	if err := change.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("change password error: ", "error", err)
		return renderError(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]string{
		"status": "password_updated",
	})
}

func (a *AuthController) ProfileShow(ctx router.Context) error {
	account, ok := FromContext(ctx.Context())
	if !ok {
		return a.AuthErrorHandler(ctx, ErrUnableToFindSession)
	}

	return ctx.JSON(fiber.StatusOK, profileBody(account))
}

// ProfileUpdatePayload carries mutable profile fields
type ProfileUpdatePayload struct {
	Name  string `form:"name" json:"name"`
	Email string `form:"email" json:"email"`
	Phone string `form:"phone_number" json:"phone_number"`
}

// Validate will validate the payload
func (r ProfileUpdatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Length(6, 100), is.Email),
		validation.Field(&r.Phone, validation.By(ValidatePhoneNumber("US"))),
	)
}

func (a *AuthController) ProfileUpdate(ctx router.Context) error {
	account, ok := FromContext(ctx.Context())
	if !ok {
		return a.AuthErrorHandler(ctx, ErrUnableToFindSession)
	}

	payload := new(ProfileUpdatePayload)

	if err := ctx.Bind(payload); err != nil {
		return renderBindError(ctx, err)
	}

	if err := payload.Validate(); err != nil {
		return renderValidationError(ctx, err)
	}

	var updated *Account

	input := UpdateProfileMessage{
		AccountID: account.ID,
		Name:      payload.Name,
		Email:     payload.Email,
		Phone:     payload.Phone,
		OnResponse: func(account *Account) {
			updated = account
		},
	}

	update := NewUpdateProfileHandler(a.Repo)
	if err := update.Execute(ctx.Context(), input); err != nil {
		a.Logger.Error("update profile error: ", "error", err)
		return renderError(ctx, err)
	}

	if updated == nil {
		updated = account
	}

	return ctx.JSON(fiber.StatusOK, profileBody(updated))
}

func profileBody(account *Account) map[string]any {
	return map[string]any{
		"id":        account.ID.String(),
		"name":      account.Name,
		"email":     account.Email,
		"phone":     account.Phone,
		"confirmed": account.IsConfirmed,
	}
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// ValidatePhoneNumber checks optional phone fields against the given default
// region. Empty values pass; Required is a separate rule.
func ValidatePhoneNumber(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s == "" {
			return nil
		}

		num, err := phonenumbers.Parse(s, region)
		if err != nil {
			return fmt.Errorf("must be a valid phone number: %w", err)
		}

		if !phonenumbers.IsValidNumber(num) {
			return errors.New("must be a valid phone number")
		}

		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors into a
// field to message map for JSON responses.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				out[field] = ferr.Error()
			}
		}
		return out
	}

	out["error"] = err.Error()
	return out
}

func renderBindError(ctx router.Context, err error) error {
	return ctx.JSON(fiber.StatusBadRequest, map[string]any{
		"error":     "failed to parse request body",
		"text_code": "BAD_REQUEST",
		"details":   err.Error(),
	})
}

func renderValidationError(ctx router.Context, err error) error {
	return ctx.JSON(fiber.StatusBadRequest, map[string]any{
		"error":      "validation failed",
		"text_code":  "VALIDATION_ERROR",
		"validation": FormatValidationErrorToMap(err),
	})
}

func renderError(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	return ctx.JSON(statusForError(richErr), map[string]any{
		"error":     richErr.Message,
		"text_code": richErr.TextCode,
	})
}

func statusForError(richErr *goerrors.Error) int {
	if richErr.Code > 0 {
		return richErr.Code
	}

	switch richErr.Category {
	case goerrors.CategoryAuth:
		return fiber.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return fiber.StatusForbidden
	case goerrors.CategoryConflict:
		return fiber.StatusConflict
	case goerrors.CategoryNotFound:
		return fiber.StatusNotFound
	case goerrors.CategoryValidation, goerrors.CategoryBadInput:
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}
