package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"tolkBack/internal/models"
	"tolkBack/internal/repositories"
	"tolkBack/internal/timeutil"
)

// PushSender delivers one push notification to one device token.
type PushSender interface {
	Send(ctx context.Context, token string, n models.PushNotification) error
}

// SMSSender delivers one text message.
type SMSSender interface {
	Send(ctx context.Context, phone, text string) error
}

// Mailer delivers one plain-text email.
type Mailer interface {
	Send(to, subject, body string) error
}

// PushDelayQueue defers a push until the given delivery time.
type PushDelayQueue interface {
	Schedule(ctx context.Context, n models.PushNotification, at time.Time) error
}

// NotificationService fans bookings out over push, SMS and email. Every send
// is synchronous and fire-and-forget: failures are logged and skipped, never
// retried.
type NotificationService struct {
	Push   PushSender
	SMS    SMSSender
	Mail   Mailer
	Delay  PushDelayQueue
	Tokens *repositories.TokenRepository
	Users  *repositories.UserRepository
	Langs  *repositories.LanguageRepository
	RDB    *redis.Client
}

// PushDeliveryTime decides when a push may reach the recipient. Recipients who
// opted out of night alerts get their push deferred to the next morning.
func PushDeliveryTime(now time.Time, optOutNight bool) (time.Time, bool) {
	if optOutNight && timeutil.IsNightTime(now) {
		return timeutil.NextBusinessMorning(now), true
	}
	return now, false
}

// LanguageName resolves a language id to its display name through a Redis
// cache, so repeated notification builds hit the database once.
func (s *NotificationService) LanguageName(ctx context.Context, id int) (string, error) {
	key := fmt.Sprintf("language:%d", id)
	if s.RDB != nil {
		if name, err := s.RDB.Get(ctx, key).Result(); err == nil && name != "" {
			return name, nil
		}
	}
	lang, err := s.Langs.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	if s.RDB != nil {
		s.RDB.Set(ctx, key, lang.Language, 0)
	}
	return lang.Language, nil
}

func soundForJob(job models.Job) string {
	if job.Immediate == models.YesFlag {
		return models.SoundEmergencyBooking
	}
	return models.SoundNormalBooking
}

func (s *NotificationService) sendPush(ctx context.Context, user models.User, n models.PushNotification) {
	meta, err := s.Users.MetaByUserID(ctx, user.ID)
	if err != nil {
		log.Printf("push: meta lookup for user %d failed: %v", user.ID, err)
		return
	}
	if meta.NotGetNotification {
		return
	}
	n.RecipientEmail = user.Email

	now := timeutil.Now()
	deliverAt, delayed := PushDeliveryTime(now, meta.NotGetNighttime)
	if delayed && s.Delay != nil {
		if err := s.Delay.Schedule(ctx, n, deliverAt); err != nil {
			log.Printf("push: delay schedule for %s failed: %v", user.Email, err)
		}
		return
	}

	s.DeliverPush(ctx, n)
}

// DeliverPush resolves the email audience predicate to device tokens and
// sends. Used directly by the delayed-push flusher.
func (s *NotificationService) DeliverPush(ctx context.Context, n models.PushNotification) {
	tokens, err := s.Tokens.TokensForEmail(ctx, n.RecipientEmail)
	if err != nil {
		log.Printf("push: token lookup for %s failed: %v", n.RecipientEmail, err)
		return
	}
	for _, token := range tokens {
		if err := s.Push.Send(ctx, token, n); err != nil {
			log.Printf("push: send to token %s failed: %v", token, err)
		}
	}
}

func (s *NotificationService) sendMail(to, subject, body string) {
	if to == "" {
		return
	}
	if err := s.Mail.Send(to, subject, body); err != nil {
		log.Printf("mail: send to %s failed: %v", to, err)
	}
}

// smsTextForJob picks the template from the customer's phone/physical flag
// pair; a customer needing both gets the phone template.
func (s *NotificationService) smsTextForJob(ctx context.Context, job models.Job) string {
	langName, err := s.LanguageName(ctx, job.FromLanguageID)
	if err != nil {
		langName = "tolk"
	}
	due := timeutil.InStockholm(job.Due).Format("2006-01-02 15:04")

	physicalOnly := job.CustomerPhysicalType == models.YesFlag && job.CustomerPhoneType != models.YesFlag
	if physicalOnly {
		return fmt.Sprintf("Ny bokning för %s-tolkning (på plats i %s) %d min den %s. Se din jobblista för detaljer!",
			langName, job.Town, job.Duration, due)
	}
	if job.Immediate == models.YesFlag {
		return fmt.Sprintf("Ny akut %s-telefontolkning %d min. Se din jobblista!",
			langName, job.Duration)
	}
	return fmt.Sprintf("Ny bokning för %s-telefontolkning %d min den %s. Se din jobblista!",
		langName, job.Duration, due)
}

// FanOutNewJob notifies every matched translator about a fresh pending job
// over push and SMS.
func (s *NotificationService) FanOutNewJob(ctx context.Context, job models.Job, translators []models.User) {
	langName, err := s.LanguageName(ctx, job.FromLanguageID)
	if err != nil {
		langName = "tolk"
	}
	title := "Ny bokning"
	if job.Immediate == models.YesFlag {
		title = "Ny akut bokning"
	}
	body := fmt.Sprintf("Du har fått en ny %stolkning, jobb-id %d", langName+"-", job.ID)
	smsText := s.smsTextForJob(ctx, job)

	for _, tr := range translators {
		meta, err := s.Users.MetaByUserID(ctx, tr.ID)
		if err != nil {
			log.Printf("fanout: meta lookup for translator %d failed: %v", tr.ID, err)
			continue
		}
		if meta.NotGetNotification {
			continue
		}
		if job.Immediate == models.YesFlag && meta.NotGetEmergency {
			continue
		}

		s.sendPush(ctx, tr, models.PushNotification{
			Title: title,
			Body:  body,
			JobID: job.ID,
			Sound: soundForJob(job),
		})

		if tr.Phone != "" {
			if err := s.SMS.Send(ctx, tr.Phone, smsText); err != nil {
				log.Printf("fanout: sms to translator %d (%s) failed: %v", tr.ID, tr.Phone, err)
			} else {
				log.Printf("fanout: sms sent to translator %d (%s)", tr.ID, tr.Phone)
			}
		}
	}
}

// JobAccepted confirms the assignment to both parties and reminds the
// translator over push.
func (s *NotificationService) JobAccepted(ctx context.Context, job models.Job, customer models.User, translator models.User) {
	langName, _ := s.LanguageName(ctx, job.FromLanguageID)
	due := timeutil.InStockholm(job.Due).Format("2006-01-02 15:04")

	s.sendMail(customer.Email,
		fmt.Sprintf("Bekräftelse - tolk har accepterat er bokning (bokning # %d)", job.ID),
		fmt.Sprintf("Hej %s,\n\nEr bokning av %s-tolk den %s har accepterats av en tolk. Bokningsnummer: %d.",
			customer.Name, langName, due, job.ID))

	s.sendMail(translator.Email,
		fmt.Sprintf("Bekräftelse - du har accepterat en bokning (bokning # %d)", job.ID),
		fmt.Sprintf("Hej %s,\n\nDu har accepterat %s-tolkningen den %s, %d min. Bokningsnummer: %d.",
			translator.Name, langName, due, job.Duration, job.ID))

	s.sendPush(ctx, translator, models.PushNotification{
		Title: "Bokning tilldelad",
		Body:  fmt.Sprintf("Du är tilldelad %s-tolkningen den %s", langName, due),
		JobID: job.ID,
		Sound: soundForJob(job),
	})
}

// StatusChanged tells the customer a pending booking left the pending state
// without being assigned.
func (s *NotificationService) StatusChanged(ctx context.Context, job models.Job, oldStatus string, customer models.User) {
	langName, _ := s.LanguageName(ctx, job.FromLanguageID)
	due := timeutil.InStockholm(job.Due).Format("2006-01-02 15:04")
	s.sendMail(customer.Email,
		fmt.Sprintf("Bokning avslutad (bokning # %d)", job.ID),
		fmt.Sprintf("Hej %s,\n\nStatus för er bokning av %s-tolk den %s har ändrats från %s till %s.",
			customer.Name, langName, due, oldStatus, job.Status))
}

// JobWithdrawn sends cancellation mail to the customer and the active
// translator, when one exists.
func (s *NotificationService) JobWithdrawn(ctx context.Context, job models.Job, customer models.User, translator *models.User) {
	langName, _ := s.LanguageName(ctx, job.FromLanguageID)
	due := timeutil.InStockholm(job.Due).Format("2006-01-02 15:04")

	s.sendMail(customer.Email,
		fmt.Sprintf("Avbokning av bokningsnr: # %d", job.ID),
		fmt.Sprintf("Hej %s,\n\nEr bokning av %s-tolk den %s är nu avbokad.", customer.Name, langName, due))

	if translator != nil {
		s.sendMail(translator.Email,
			fmt.Sprintf("Avbokning av bokningsnr: # %d", job.ID),
			fmt.Sprintf("Hej %s,\n\nBokningen av %s-tolkning den %s har avbokats av kunden.",
				translator.Name, langName, due))
		s.sendPush(ctx, *translator, models.PushNotification{
			Title: "Bokning avbokad",
			Body:  fmt.Sprintf("%s-tolkningen den %s är avbokad", langName, due),
			JobID: job.ID,
			Sound: soundForJob(job),
		})
	}
}

// TranslatorDropped tells the customer their translator cancelled and the
// search has restarted.
func (s *NotificationService) TranslatorDropped(ctx context.Context, job models.Job, customer models.User) {
	langName, _ := s.LanguageName(ctx, job.FromLanguageID)
	due := timeutil.InStockholm(job.Due).Format("2006-01-02 15:04")
	s.sendMail(customer.Email,
		fmt.Sprintf("Tolken har avbokat (bokning # %d)", job.ID),
		fmt.Sprintf("Hej %s,\n\nTolken för er bokning av %s-tolk den %s har avbokat sig. Vi söker nu en ny tolk åt er.",
			customer.Name, langName, due))
}

// SessionEnded mails the session summary. forText distinguishes the customer
// invoice ("faktura") from the translator payroll ("lön") context.
func (s *NotificationService) SessionEnded(ctx context.Context, job models.Job, recipient models.User, forText, duration string) {
	s.sendMail(recipient.Email,
		fmt.Sprintf("Information om avslutad tolkning för bokningsnummer # %d", job.ID),
		fmt.Sprintf("Hej %s,\n\nTolkningen för bokningsnummer %d är nu avslutad. Total tid: %s. Underlag för %s.",
			recipient.Name, job.ID, duration, forText))
}

// JobChangedDate, JobChangedTranslator and JobChangedLanguage are each gated
// on their own change flag by the caller and only fire for future bookings.
func (s *NotificationService) JobChangedDate(ctx context.Context, job models.Job, customer models.User, oldDue string) {
	due := timeutil.InStockholm(job.Due).Format("2006-01-02 15:04")
	s.sendMail(customer.Email,
		fmt.Sprintf("Ändrad tid för bokning # %d", job.ID),
		fmt.Sprintf("Hej %s,\n\nTiden för er bokning %d har ändrats från %s till %s.",
			customer.Name, job.ID, oldDue, due))
}

func (s *NotificationService) JobChangedTranslator(ctx context.Context, job models.Job, customer models.User, newTranslator models.User) {
	s.sendMail(customer.Email,
		fmt.Sprintf("Ny tolk för bokning # %d", job.ID),
		fmt.Sprintf("Hej %s,\n\nEr bokning %d har tilldelats en ny tolk.", customer.Name, job.ID))

	s.sendPush(ctx, newTranslator, models.PushNotification{
		Title: "Bokning tilldelad",
		Body:  fmt.Sprintf("Du har tilldelats bokning %d", job.ID),
		JobID: job.ID,
		Sound: soundForJob(job),
	})
}

func (s *NotificationService) JobChangedLanguage(ctx context.Context, job models.Job, customer models.User, oldLanguage string) {
	langName, _ := s.LanguageName(ctx, job.FromLanguageID)
	s.sendMail(customer.Email,
		fmt.Sprintf("Ändrat språk för bokning # %d", job.ID),
		fmt.Sprintf("Hej %s,\n\nSpråket för er bokning %d har ändrats från %s till %s.",
			customer.Name, job.ID, oldLanguage, langName))
}

// BookingReceived confirms a fresh booking to the customer, used by the
// guest-by-email flow as well.
func (s *NotificationService) BookingReceived(ctx context.Context, job models.Job, customer models.User) {
	langName, _ := s.LanguageName(ctx, job.FromLanguageID)
	due := timeutil.InStockholm(job.Due).Format("2006-01-02 15:04")
	s.sendMail(customer.Email,
		fmt.Sprintf("Vi har mottagit er tolkbokning (bokning # %d)", job.ID),
		fmt.Sprintf("Hej %s,\n\nVi har mottagit er bokning av %s-tolk den %s, %d min.",
			customer.Name, langName, due, job.Duration))
}

// ResendSMS re-sends the job SMS to the matched translator set.
func (s *NotificationService) ResendSMS(ctx context.Context, job models.Job, translators []models.User) int {
	text := s.smsTextForJob(ctx, job)
	sent := 0
	for _, tr := range translators {
		if tr.Phone == "" {
			continue
		}
		if err := s.SMS.Send(ctx, tr.Phone, text); err != nil {
			log.Printf("resend: sms to translator %d failed: %v", tr.ID, err)
			continue
		}
		sent++
	}
	return sent
}
