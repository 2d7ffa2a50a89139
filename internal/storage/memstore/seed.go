package memstore

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/magabrotheeeer/mentorship-booking/internal/models"
)

// Seed: начальные данные для хранилища в памяти.
type Seed struct {
	Packages []struct {
		ID            string `yaml:"id"`
		Name          string `yaml:"name"`
		Tier          string `yaml:"tier"`
		Segment       string `yaml:"segment"`
		TotalSessions int    `yaml:"total_sessions"`
		Phases        int    `yaml:"phases"`
		ValidityDays  int    `yaml:"validity_days"`
	} `yaml:"packages"`
	Mentors []struct {
		ID              string                         `yaml:"id"`
		UserID          string                         `yaml:"user_id"`
		Name            string                         `yaml:"name"`
		Level           string                         `yaml:"level"`
		Timezone        string                         `yaml:"timezone"`
		Specializations []string                       `yaml:"specializations"`
		Availability    []models.AvailabilityRuleInput `yaml:"availability"`
	} `yaml:"mentors"`
	Subscriptions []struct {
		ID           string `yaml:"id"`
		UserID       string `yaml:"user_id"`
		PackageID    string `yaml:"package_id"`
		SessionsUsed int    `yaml:"sessions_used"`
	} `yaml:"subscriptions"`
}

// LoadSeed читает YAML-файл с начальными данными и наполняет хранилище.
func (s *Store) LoadSeed(path string, now time.Time) error {
	const op = "memstore.LoadSeed"

	var seed Seed
	if err := cleanenv.ReadConfig(path, &seed); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	packages := make(map[string]models.Package, len(seed.Packages))
	for _, p := range seed.Packages {
		pkg := models.Package{
			ID:            p.ID,
			Name:          p.Name,
			Tier:          models.Tier(p.Tier),
			Segment:       models.Segment(p.Segment),
			TotalSessions: p.TotalSessions,
			Phases:        p.Phases,
			ValidityDays:  p.ValidityDays,
		}
		if !pkg.Tier.Valid() {
			return fmt.Errorf("%s: package %s: unknown tier %q", op, p.ID, p.Tier)
		}
		packages[pkg.ID] = pkg
		s.AddPackage(pkg)
	}

	for _, m := range seed.Mentors {
		rules := make([]models.AvailabilityRule, 0, len(m.Availability))
		for _, in := range m.Availability {
			rule, err := in.ToRule()
			if err != nil {
				return fmt.Errorf("%s: mentor %s: %w", op, m.ID, err)
			}
			rules = append(rules, rule)
		}
		specs := make([]models.Segment, 0, len(m.Specializations))
		for _, sp := range m.Specializations {
			specs = append(specs, models.Segment(sp))
		}
		s.AddMentor(models.Mentor{
			ID:              m.ID,
			UserID:          m.UserID,
			Name:            m.Name,
			Active:          true,
			Level:           m.Level,
			Specializations: specs,
			Timezone:        m.Timezone,
		}, rules...)
	}

	for _, sub := range seed.Subscriptions {
		pkg, ok := packages[sub.PackageID]
		if !ok {
			return fmt.Errorf("%s: subscription %s: unknown package %s", op, sub.ID, sub.PackageID)
		}
		var expires *time.Time
		if pkg.ValidityDays > 0 {
			e := now.AddDate(0, 0, pkg.ValidityDays)
			expires = &e
		}
		s.AddSubscription(models.Subscription{
			ID:            sub.ID,
			UserID:        sub.UserID,
			PackageID:     pkg.ID,
			Tier:          pkg.Tier,
			Segment:       pkg.Segment,
			Status:        models.SubscriptionActive,
			TotalSessions: pkg.TotalSessions,
			SessionsUsed:  sub.SessionsUsed,
			CurrentPhase:  1,
			PurchasedAt:   now,
			ExpiresAt:     expires,
		})
	}
	return nil
}
