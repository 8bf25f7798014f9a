package skill

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

// Repository defines the interface for skill persistence.
type Repository interface {
	List() ([]*Skill, error)
	Get(id string) (*Skill, error)
	Create(s *Skill) error
	Update(s *Skill) error
	Delete(id string) error
}
