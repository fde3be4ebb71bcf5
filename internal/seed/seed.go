package seed

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/helpdesk/internal/domain"
)

// DemoUsers returns the built-in directory.
func DemoUsers() []domain.User {
	return []domain.User{
		{ID: "user1", Email: "customer1@example.com", Name: "Alice Wonderland", Role: domain.RoleCustomer},
		{ID: "user2", Email: "agent1@example.com", Name: "Bob The Builder", Role: domain.RoleAgent},
		{ID: "user3", Email: "admin1@example.com", Name: "Charlie Admin", Role: domain.RoleAdmin},
		{ID: "user4", Email: "customer2@example.com", Name: "Diana Prince", Role: domain.RoleCustomer},
		{ID: "user5", Email: "agent2@example.com", Name: "Edward Agent", Role: domain.RoleAgent},
	}
}

type directoryFile struct {
	Users []domain.User `yaml:"users"`
}

// LoadUsers reads a YAML directory file of the form
//
//	users:
//	  - id: user1
//	    email: customer1@example.com
//	    name: Alice Wonderland
//	    role: customer
func LoadUsers(path string) ([]domain.User, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read directory seed: %w", err)
	}
	var file directoryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse directory seed: %w", err)
	}

	seenIDs := make(map[string]struct{}, len(file.Users))
	for i, user := range file.Users {
		if user.ID == "" || user.Email == "" {
			return nil, fmt.Errorf("directory seed entry %d: id and email are required", i)
		}
		if !user.Role.Valid() {
			return nil, fmt.Errorf("directory seed entry %d: unknown role %q", i, user.Role)
		}
		if _, dup := seenIDs[user.ID]; dup {
			return nil, fmt.Errorf("directory seed entry %d: duplicate id %q", i, user.ID)
		}
		seenIDs[user.ID] = struct{}{}
	}
	return file.Users, nil
}

// DemoTickets returns the sample tickets with timestamps relative to now.
func DemoTickets(now time.Time) []domain.Ticket {
	now = now.UTC()
	users := DemoUsers()
	ago := func(d time.Duration) time.Time { return now.Add(-d) }
	rating := func(v int) *int { return &v }
	ref := func(u domain.User) *domain.UserRef {
		r := domain.UserRef{ID: u.ID, Name: u.Name}
		return &r
	}

	return []domain.Ticket{
		{
			ID:          "ticket1",
			Title:       "Cannot login to my account",
			Description: `I am unable to login to my account. It says "Invalid credentials" even though I am sure my password is correct. I have tried resetting it but the issue persists.`,
			Status:      domain.TicketStatusOpen,
			Priority:    domain.TicketPriorityHigh,
			Department:  domain.DepartmentTechnicalSupport,
			CreatedBy:   users[0].CreatorRef(),
			AssignedTo:  ref(users[1]),
			CreatedAt:   ago(48 * time.Hour),
			UpdatedAt:   ago(3 * time.Hour),
			Attachments: demoAttachments("ticket1", 1, now),
			Comments:    demoComments("ticket1", 2, now, users),
		},
		{
			ID:          "ticket2",
			Title:       "Billing inquiry about last invoice",
			Description: "I have a question regarding my last invoice (INV-2024-001). There is a charge I do not recognize. Could you please clarify?",
			Status:      domain.TicketStatusInProgress,
			Priority:    domain.TicketPriorityMedium,
			Department:  domain.DepartmentBilling,
			CreatedBy:   users[3].CreatorRef(),
			AssignedTo:  ref(users[4]),
			CreatedAt:   ago(24 * time.Hour),
			UpdatedAt:   ago(time.Hour),
			Attachments: []domain.Attachment{},
			Comments:    demoComments("ticket2", 1, now, users),
		},
		{
			ID:          "ticket3",
			Title:       "Feature request: Dark mode",
			Description: "It would be great if the application had a dark mode option. It would be easier on the eyes, especially at night.",
			Status:      domain.TicketStatusPendingCustomer,
			Priority:    domain.TicketPriorityLow,
			Department:  domain.DepartmentGeneralInquiry,
			CreatedBy:   users[0].CreatorRef(),
			AssignedTo:  ref(users[1]),
			CreatedAt:   ago(5 * 24 * time.Hour),
			UpdatedAt:   ago(24 * time.Hour),
			Attachments: []domain.Attachment{},
			Comments:    demoComments("ticket3", 3, now, users),
			Rating:      rating(4),
		},
		{
			ID:          "ticket4",
			Title:       "Website is down",
			Description: "The main website seems to be inaccessible. I am getting a 503 error. This is urgent for our business operations.",
			Status:      domain.TicketStatusOpen,
			Priority:    domain.TicketPriorityUrgent,
			Department:  domain.DepartmentTechnicalSupport,
			CreatedBy:   users[3].CreatorRef(),
			AssignedTo:  ref(users[1]),
			CreatedAt:   ago(30 * time.Minute),
			UpdatedAt:   ago(5 * time.Minute),
			Attachments: demoAttachments("ticket4", 1, now),
			Comments:    []domain.Comment{},
		},
		{
			ID:          "ticket5",
			Title:       "Product information request",
			Description: "I would like more information about product X, specifically its integration capabilities with Y.",
			Status:      domain.TicketStatusResolved,
			Priority:    domain.TicketPriorityMedium,
			Department:  domain.DepartmentSales,
			CreatedBy:   users[0].CreatorRef(),
			AssignedTo:  ref(users[4]),
			CreatedAt:   ago(7 * 24 * time.Hour),
			UpdatedAt:   ago(2 * 24 * time.Hour),
			Attachments: []domain.Attachment{},
			Comments:    demoComments("ticket5", 4, now, users),
			Rating:      rating(5),
		},
	}
}

func demoAttachments(ticketID string, count int, now time.Time) []domain.Attachment {
	out := make([]domain.Attachment, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, domain.Attachment{
			ID:         fmt.Sprintf("att-%s-%d", ticketID, i),
			FileName:   fmt.Sprintf("screenshot-%d.png", i+1),
			URL:        fmt.Sprintf("https://picsum.photos/seed/att%d/200/300", i),
			UploadedAt: now.Add(-time.Duration(i) * 24 * time.Hour),
		})
	}
	return out
}

// demoComments cycles through the directory for authors. Staff comments at
// every third position are internal notes.
func demoComments(ticketID string, count int, now time.Time, users []domain.User) []domain.Comment {
	out := make([]domain.Comment, 0, count)
	for i := 0; i < count; i++ {
		author := users[i%len(users)]
		out = append(out, domain.Comment{
			ID:             fmt.Sprintf("comment%s%d", ticketID, i),
			TicketID:       ticketID,
			AuthorID:       author.ID,
			AuthorName:     author.Name,
			Content:        fmt.Sprintf("This is comment number %d. Lorem ipsum dolor sit amet, consectetur adipiscing elit.", i+1),
			CreatedAt:      now.Add(-time.Duration(i) * 30 * time.Minute),
			IsInternalNote: i%3 == 0 && author.Role != domain.RoleCustomer,
		})
	}
	return out
}
