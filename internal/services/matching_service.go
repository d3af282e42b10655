package services

import (
	"context"
	"slices"

	"tolkBack/internal/fsm"
	"tolkBack/internal/models"
	"tolkBack/internal/repositories"
)

// MatchingService computes which translators can take a job and which jobs a
// translator can take. Candidates are returned unordered: acceptance is
// first-come downstream, there is no ranking.
type MatchingService struct {
	UserRepo      *repositories.UserRepository
	JobRepo       *repositories.JobRepository
	BlacklistRepo *repositories.BlacklistRepository
}

// TranslatorTypeForJob maps the job type to the translator kind that may serve
// it. Any other job type is rejected explicitly.
func TranslatorTypeForJob(jobType string) (string, error) {
	switch jobType {
	case models.JobTypePaid:
		return models.TranslatorProfessional, nil
	case models.JobTypeRWS:
		return models.TranslatorRWS, nil
	case models.JobTypeUnpaid:
		return models.TranslatorVolunteer, nil
	default:
		return "", models.ErrUnknownJobType
	}
}

// TranslatorLevelsFor maps a job's certification requirement to the acceptable
// translator qualification levels.
func TranslatorLevelsFor(certified *string) []string {
	all := []string{
		models.LevelCertified, models.LevelCertifiedLaw, models.LevelCertifiedHealth,
		models.LevelLayman, models.LevelReadCourses,
	}
	if certified == nil {
		return all
	}
	switch *certified {
	case "yes", "both":
		return []string{models.LevelCertified, models.LevelCertifiedLaw, models.LevelCertifiedHealth}
	case "law", "n_law":
		return []string{models.LevelCertifiedLaw}
	case "health", "n_health":
		return []string{models.LevelCertifiedHealth}
	case "normal":
		return []string{models.LevelLayman, models.LevelReadCourses}
	default:
		return all
	}
}

// EligibleJob is the per-job predicate of the inverse search: can this
// translator take this pending job?
func EligibleJob(translatorID int, meta models.UserMeta, langs []int, excludedCustomers []int, job models.Job) bool {
	if job.Status != fsm.StatusPending {
		return false
	}
	translatorType, err := TranslatorTypeForJob(job.JobType)
	if err != nil || translatorType != meta.TranslatorType {
		return false
	}
	if !slices.Contains(langs, job.FromLanguageID) {
		return false
	}
	if job.Gender != nil && *job.Gender != meta.Gender {
		return false
	}
	if !slices.Contains(TranslatorLevelsFor(job.Certified), meta.TranslatorLevel) {
		return false
	}
	// Jobs pinned to one particular translator stay out of the general pool.
	if job.SpecificJob != nil && *job.SpecificJob != translatorID {
		return false
	}
	// Physical-only jobs require the translator to live in the same town.
	if job.CustomerPhysicalType == models.YesFlag && job.CustomerPhoneType != models.YesFlag && job.Town != meta.City {
		return false
	}
	if slices.Contains(excludedCustomers, job.UserID) {
		return false
	}
	return true
}

// PotentialTranslators returns the candidate set for a job.
func (s *MatchingService) PotentialTranslators(ctx context.Context, job models.Job) ([]models.User, error) {
	translatorType, err := TranslatorTypeForJob(job.JobType)
	if err != nil {
		return nil, err
	}
	levels := TranslatorLevelsFor(job.Certified)

	gender := ""
	if job.Gender != nil {
		gender = *job.Gender
	}

	excluded, err := s.BlacklistRepo.TranslatorIDsForCustomer(ctx, job.UserID)
	if err != nil {
		return nil, err
	}

	return s.UserRepo.Translators(ctx, translatorType, job.FromLanguageID, gender, levels, excluded)
}

// PotentialJobs returns the pending jobs a translator may accept.
func (s *MatchingService) PotentialJobs(ctx context.Context, translatorID int) ([]models.Job, error) {
	meta, err := s.UserRepo.MetaByUserID(ctx, translatorID)
	if err != nil {
		return nil, err
	}
	langs, err := s.UserRepo.LanguagesByUserID(ctx, translatorID)
	if err != nil {
		return nil, err
	}
	excludedCustomers, err := s.BlacklistRepo.CustomerIDsExcluding(ctx, translatorID)
	if err != nil {
		return nil, err
	}
	pending, err := s.JobRepo.PendingJobs(ctx)
	if err != nil {
		return nil, err
	}

	jobs := []models.Job{}
	for _, job := range pending {
		if EligibleJob(translatorID, meta, langs, excludedCustomers, job) {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}
