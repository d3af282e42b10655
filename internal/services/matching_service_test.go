package services

import (
	"errors"
	"testing"

	"tolkBack/internal/fsm"
	"tolkBack/internal/models"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestTranslatorTypeForJob(t *testing.T) {
	cases := []struct {
		jobType string
		want    string
	}{
		{models.JobTypePaid, models.TranslatorProfessional},
		{models.JobTypeRWS, models.TranslatorRWS},
		{models.JobTypeUnpaid, models.TranslatorVolunteer},
	}
	for _, c := range cases {
		got, err := TranslatorTypeForJob(c.jobType)
		if err != nil {
			t.Fatalf("TranslatorTypeForJob(%s): %v", c.jobType, err)
		}
		if got != c.want {
			t.Errorf("TranslatorTypeForJob(%s) = %s, want %s", c.jobType, got, c.want)
		}
	}

	if _, err := TranslatorTypeForJob("premium"); !errors.Is(err, models.ErrUnknownJobType) {
		t.Errorf("unknown job type should return ErrUnknownJobType, got %v", err)
	}
}

func TestTranslatorLevelsForBoth(t *testing.T) {
	levels := TranslatorLevelsFor(strPtr("both"))
	want := map[string]bool{
		models.LevelCertified:       true,
		models.LevelCertifiedLaw:    true,
		models.LevelCertifiedHealth: true,
	}
	if len(levels) != len(want) {
		t.Fatalf("certified=both should yield exactly %d levels, got %v", len(want), levels)
	}
	for _, l := range levels {
		if !want[l] {
			t.Errorf("certified=both yielded unexpected level %s", l)
		}
	}
}

func TestTranslatorLevelsFor(t *testing.T) {
	if got := TranslatorLevelsFor(nil); len(got) != 5 {
		t.Errorf("nil certified should allow all 5 levels, got %d", len(got))
	}
	if got := TranslatorLevelsFor(strPtr("law")); len(got) != 1 || got[0] != models.LevelCertifiedLaw {
		t.Errorf("certified=law should allow only the law level, got %v", got)
	}
	if got := TranslatorLevelsFor(strPtr("health")); len(got) != 1 || got[0] != models.LevelCertifiedHealth {
		t.Errorf("certified=health should allow only the health level, got %v", got)
	}
	if got := TranslatorLevelsFor(strPtr("normal")); len(got) != 2 {
		t.Errorf("certified=normal should allow layman and courses, got %v", got)
	}
}

func TestEligibleJob(t *testing.T) {
	meta := models.UserMeta{
		TranslatorType:  models.TranslatorProfessional,
		TranslatorLevel: models.LevelCertified,
		Gender:          "female",
		City:            "Stockholm",
	}
	langs := []int{4, 7}

	base := models.Job{
		Status:            fsm.StatusPending,
		JobType:           models.JobTypePaid,
		FromLanguageID:    4,
		CustomerPhoneType: models.YesFlag,
		UserID:            11,
	}

	if !EligibleJob(3, meta, langs, nil, base) {
		t.Fatal("base job should be eligible")
	}

	notPending := base
	notPending.Status = fsm.StatusAssigned
	if EligibleJob(3, meta, langs, nil, notPending) {
		t.Error("non-pending job must not be eligible")
	}

	wrongLang := base
	wrongLang.FromLanguageID = 9
	if EligibleJob(3, meta, langs, nil, wrongLang) {
		t.Error("job in a language the translator lacks must not be eligible")
	}

	wrongGender := base
	wrongGender.Gender = strPtr("male")
	if EligibleJob(3, meta, langs, nil, wrongGender) {
		t.Error("gender mismatch must not be eligible")
	}

	wrongType := base
	wrongType.JobType = models.JobTypeRWS
	if EligibleJob(3, meta, langs, nil, wrongType) {
		t.Error("rws job must not match a professional translator")
	}

	pinned := base
	pinned.SpecificJob = intPtr(99)
	if EligibleJob(3, meta, langs, nil, pinned) {
		t.Error("job pinned to another translator must not be eligible")
	}
	pinned.SpecificJob = intPtr(3)
	if !EligibleJob(3, meta, langs, nil, pinned) {
		t.Error("job pinned to this translator should be eligible")
	}

	physical := base
	physical.CustomerPhoneType = models.NoFlag
	physical.CustomerPhysicalType = models.YesFlag
	physical.Town = "Göteborg"
	if EligibleJob(3, meta, langs, nil, physical) {
		t.Error("physical job in another town must not be eligible")
	}
	physical.Town = "Stockholm"
	if !EligibleJob(3, meta, langs, nil, physical) {
		t.Error("physical job in the translator's town should be eligible")
	}

	if EligibleJob(3, meta, langs, []int{11}, base) {
		t.Error("blacklisted customer's job must not be eligible")
	}
}
