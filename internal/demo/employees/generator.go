package employees

import (
	"math/rand"
	"strconv"
	"strings"
	"time"
)

const (
	Header = "employee_id,name,department,salary,hire_date"

	minSalary = 45_000
	maxSalary = 220_000
)

var (
	firstNames = []string{
		"Alice", "Bob", "Carol", "David", "Eva", "Frank", "Grace", "Henry", "Ivy", "Jack",
		"Liam", "Mia", "Noah", "Olivia", "Priya", "Quinn", "Rosa", "Sam", "Tina", "Uma",
		"Victor", "Wen", "Xavier", "Yara", "Zoe",
	}
	lastNames = []string{
		"Johnson", "Martinez", "Lee", "Kim", "Smith", "Zhao", "Patel", "Nguyen", "Chen", "Brown",
		"Davis", "Wilson", "Garcia", "Hernandez", "Lopez", "Gonzalez", "Anderson", "Thomas", "Taylor", "Moore",
	}
	departments = []string{
		"Engineering", "Sales", "Marketing", "Finance", "HR", "Product", "Support", "Operations",
	}

	hireFrom = time.Date(2010, 1, 1, 0, 0, 0, 0, time.UTC)
	hireTo   = time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
)

type Employee struct {
	EmployeeID int64
	Name       string
	Department string
	Salary     int64
	HireDate   time.Time
}

// Generator yields employees with sequential ids. The same seed always
// produces the same sequence.
type Generator struct {
	rnd      *rand.Rand
	sequence int64
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

func (g *Generator) Next() Employee {
	g.sequence++
	return Employee{
		EmployeeID: g.sequence,
		Name:       pickOne(g.rnd, firstNames) + " " + pickOne(g.rnd, lastNames),
		Department: pickOne(g.rnd, departments),
		Salary:     int64(minSalary + g.rnd.Intn(maxSalary-minSalary+1)),
		HireDate:   g.pickHireDate(),
	}
}

func (g *Generator) pickHireDate() time.Time {
	days := int(hireTo.Sub(hireFrom).Hours() / 24)
	return hireFrom.AddDate(0, 0, g.rnd.Intn(days+1))
}

// CSVLine renders e as one CSV record including the trailing newline.
// Generated values never contain separators or quotes.
func (e Employee) CSVLine() string {
	var b strings.Builder
	b.Grow(64)
	b.WriteString(strconv.FormatInt(e.EmployeeID, 10))
	b.WriteByte(',')
	b.WriteString(e.Name)
	b.WriteByte(',')
	b.WriteString(e.Department)
	b.WriteByte(',')
	b.WriteString(strconv.FormatInt(e.Salary, 10))
	b.WriteByte(',')
	b.WriteString(e.HireDate.Format(time.DateOnly))
	b.WriteByte('\n')
	return b.String()
}

func pickOne(r *rand.Rand, values []string) string {
	return values[r.Intn(len(values))]
}
