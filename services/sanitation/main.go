package sanitation

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/helena-bio/helix-frontend-sub000/models"
	"github.com/helena-bio/helix-frontend-sub000/repositories"
)

type (
	SanitationService struct {
		Initialized bool
		Repository  repositories.SessionRepository
		Config      *models.Config
	}
)

func NewSanitationService(repository repositories.SessionRepository, cfg *models.Config) *SanitationService {
	ss := &SanitationService{
		Initialized: false,
		Repository:  repository,
		Config:      cfg,
	}

	ss.Init()

	return ss
}

func (ss *SanitationService) Init() {
	// initialization if necessary
	if !ss.Initialized {
		// - spin up a go routine that will periodically
		//   run through a series of steps to ensure
		//   the system is "sanitary" ; i.e. that review
		//   sessions which outlived their retention window,
		//   and the variant documents hanging off of them,
		//   get cleaned out
		go func() {
			// setup cron job
			s := gocron.NewScheduler(time.UTC)

			// clean out expired review sessions
			s.Every(1).Days().At("04:00:00").Do(func() { // 12am EST
				fmt.Printf("[%s] - Running expired session cleanup..\n", time.Now())

				retention := time.Duration(ss.Config.Api.SessionRetentionHours) * time.Hour
				cutoff := time.Now().Add(-retention)

				deleted, deleteErr := ss.Repository.DeleteSessionsBefore(cutoff)
				if deleteErr != nil {
					fmt.Printf("[%s] - Error cleaning sessions : %v..\n", time.Now(), deleteErr)
					return
				}

				fmt.Printf("[%s] - Removed %d expired sessions..\n", time.Now(), deleted)
			})

			// starts the scheduler in blocking mode, which blocks
			// the current execution path
			s.StartBlocking()
		}()

		ss.Initialized = true
		fmt.Println("Sanitation Service Initialized ..")
	}
}
