package repoargs

type CreateUser struct {
	Email    string
	Password string
	IsStaff  bool
}
