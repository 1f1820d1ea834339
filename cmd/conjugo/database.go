package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/conjugo/conjugo/internal/adapters/id"
	"github.com/conjugo/conjugo/internal/adapters/postgres"
	"github.com/conjugo/conjugo/internal/domain"
	"github.com/conjugo/conjugo/internal/domain/models"
)

func databaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "database",
		Short: "Manage the database schema and fixtures",
	}
	cmd.AddCommand(databaseInitCmd(), databaseCleanCmd())
	return cmd
}

func databaseInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the schema and seed the starter verb set",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := postgres.InitSchema(ctx, pool); err != nil {
				return fmt.Errorf("failed to apply schema: %w", err)
			}
			log.Println("Schema applied")

			return seedFixtures(ctx, pool)
		},
	}
}

func databaseCleanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove entities flagged as test data",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			deleted, err := postgres.NewVerbRepository(pool).DeleteTestData(ctx)
			if err != nil {
				return fmt.Errorf("failed to delete test data: %w", err)
			}
			fmt.Printf("Deleted %d test verbs (sentences cascade)\n", deleted)
			return nil
		},
	}
}

// seedFixtures inserts the starter verbs and their conjugation tables.
// Re-running init is safe: duplicates are skipped.
func seedFixtures(ctx context.Context, pool *pgxpool.Pool) error {
	verbs := postgres.NewVerbRepository(pool)
	conjugations := postgres.NewConjugationRepository(pool)
	idGen := id.New()

	seeded := 0
	for _, verb := range seedVerbs() {
		verb.ID = idGen.GenerateVerbID()
		if err := verbs.Create(ctx, verb); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				continue
			}
			return fmt.Errorf("failed to seed verb %s: %w", verb.Infinitive, err)
		}
		seeded++
	}

	for _, conj := range seedConjugations() {
		conj.ID = idGen.GenerateConjugationID()
		if err := conjugations.Create(ctx, conj); err != nil {
			if errors.Is(err, domain.ErrAlreadyExists) {
				continue
			}
			return fmt.Errorf("failed to seed conjugation %s/%s: %w", conj.Infinitive, conj.Tense, err)
		}
	}

	log.Printf("Seeded %d verbs", seeded)
	return nil
}

func seedVerbs() []*models.Verb {
	mk := func(infinitive string, aux models.Auxiliary, reflexive bool, translation, pastPart, presPart string,
		group models.VerbGroup, irregular, cod, coi bool, tags ...string) *models.Verb {
		v := models.NewVerb("", infinitive, aux, reflexive, "eng", translation)
		v.PastParticiple = pastPart
		v.PresentParticiple = presPart
		v.Classification = group
		v.IsIrregular = irregular
		v.CanHaveCOD = cod
		v.CanHaveCOI = coi
		v.TopicTags = tags
		return v
	}

	return []*models.Verb{
		mk("parler", models.AuxiliaryAvoir, false, "to speak", "parlé", "parlant",
			models.VerbGroupFirst, false, false, true, "daily-life"),
		mk("manger", models.AuxiliaryAvoir, false, "to eat", "mangé", "mangeant",
			models.VerbGroupFirst, false, true, false, "daily-life", "food"),
		mk("finir", models.AuxiliaryAvoir, false, "to finish", "fini", "finissant",
			models.VerbGroupSecond, false, true, false, "daily-life"),
		mk("aller", models.AuxiliaryEtre, false, "to go", "allé", "allant",
			models.VerbGroupThird, true, false, false, "travel", "daily-life"),
		mk("donner", models.AuxiliaryAvoir, false, "to give", "donné", "donnant",
			models.VerbGroupFirst, false, true, true, "daily-life"),
		mk("se lever", models.AuxiliaryEtre, true, "to get up", "levé", "levant",
			models.VerbGroupFirst, false, false, false, "daily-life", "routine"),
	}
}

func seedConjugations() []*models.Conjugation {
	s := func(v string) *string { return &v }
	mk := func(infinitive string, aux models.Auxiliary, reflexive bool, tense models.Tense, forms [6]string) *models.Conjugation {
		return &models.Conjugation{
			Infinitive:     infinitive,
			Auxiliary:      aux,
			Reflexive:      reflexive,
			Tense:          tense,
			FirstSingular:  s(forms[0]),
			SecondSingular: s(forms[1]),
			ThirdSingular:  s(forms[2]),
			FirstPlural:    s(forms[3]),
			SecondPlural:   s(forms[4]),
			ThirdPlural:    s(forms[5]),
		}
	}

	return []*models.Conjugation{
		mk("parler", models.AuxiliaryAvoir, false, models.TensePresent,
			[6]string{"parle", "parles", "parle", "parlons", "parlez", "parlent"}),
		mk("parler", models.AuxiliaryAvoir, false, models.TenseImparfait,
			[6]string{"parlais", "parlais", "parlait", "parlions", "parliez", "parlaient"}),
		mk("parler", models.AuxiliaryAvoir, false, models.TenseFutur,
			[6]string{"parlerai", "parleras", "parlera", "parlerons", "parlerez", "parleront"}),
		mk("parler", models.AuxiliaryAvoir, false, models.TensePasseCompose,
			[6]string{"ai parlé", "as parlé", "a parlé", "avons parlé", "avez parlé", "ont parlé"}),
		mk("manger", models.AuxiliaryAvoir, false, models.TensePresent,
			[6]string{"mange", "manges", "mange", "mangeons", "mangez", "mangent"}),
		mk("finir", models.AuxiliaryAvoir, false, models.TensePresent,
			[6]string{"finis", "finis", "finit", "finissons", "finissez", "finissent"}),
		mk("aller", models.AuxiliaryEtre, false, models.TensePresent,
			[6]string{"vais", "vas", "va", "allons", "allez", "vont"}),
		mk("aller", models.AuxiliaryEtre, false, models.TensePasseCompose,
			[6]string{"suis allé", "es allé", "est allé", "sommes allés", "êtes allés", "sont allés"}),
		mk("donner", models.AuxiliaryAvoir, false, models.TensePresent,
			[6]string{"donne", "donnes", "donne", "donnons", "donnez", "donnent"}),
		mk("se lever", models.AuxiliaryEtre, true, models.TensePresent,
			[6]string{"me lève", "te lèves", "se lève", "nous levons", "vous levez", "se lèvent"}),
	}
}
