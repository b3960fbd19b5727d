// wizardctl drives the grading wizard against a running gradingd, mainly
// for smoke-testing a deployment from the terminal.
//
//	wizardctl -server http://localhost:8080 -user admin -pass secret status
//	wizardctl -teacher 3 -exam 12 goto 2
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gradeloop/gradeloop/internal/wizard"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "gradingd base URL")
	user := flag.String("user", "admin", "login username")
	pass := flag.String("pass", "", "login password")
	teacher := flag.Int64("teacher", 0, "teacher id (0 = first in list)")
	examID := flag.Int64("exam", 0, "exam id for goto")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: wizardctl [flags] status|goto <step>|select-exam <id>|refresh|complete")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	tok, err := login(ctx, *server, *user, *pass)
	if err != nil {
		log.Fatalf("login: %v", err)
	}
	gw := wizard.NewHTTPGateway(*server)
	gw.Token = tok
	store := wizard.NewStore(gw, nil)

	store.Initialize(ctx, wizard.InitializeOptions{TeacherID: *teacher})
	if st := store.Snapshot(); st.Err != "" {
		log.Fatalf("initialize: %s", st.Err)
	}

	switch cmd := flag.Arg(0); cmd {
	case "status":
		// nothing beyond Initialize
	case "goto":
		step, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			log.Fatalf("goto: bad step %q", flag.Arg(1))
		}
		if err := store.GoToStep(ctx, step, wizard.GoToStepOptions{ExamID: *examID}); err != nil {
			log.Fatalf("goto: %s", wizard.NormalizeError(err))
		}
	case "select-exam":
		id, err := strconv.ParseInt(flag.Arg(1), 10, 64)
		if err != nil {
			log.Fatalf("select-exam: bad id %q", flag.Arg(1))
		}
		store.SelectExam(id)
	case "refresh":
		store.RefreshExams(ctx)
	case "complete":
		if err := store.CompleteRun(ctx); err != nil {
			log.Fatalf("complete: %s", wizard.NormalizeError(err))
		}
	default:
		log.Fatalf("unknown command %q", cmd)
	}

	printState(store.Snapshot())
}

func login(ctx context.Context, server, user, pass string) (string, error) {
	body, _ := json.Marshal(map[string]string{"username": user, "password": pass})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, server+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	return out.AccessToken, nil
}

func printState(st wizard.State) {
	fmt.Printf("teacher:    %d\n", st.TeacherID)
	if st.Session != nil {
		fmt.Printf("session:    %d (%s)\n", st.Session.ID, st.Session.Status)
	} else {
		fmt.Printf("session:    none\n")
	}
	fmt.Printf("step:       %d\n", st.Step)
	fmt.Printf("exam:       %d\n", st.SelectedExamID)
	fmt.Printf("exams:      %d for this teacher\n", len(st.Exams))
	if st.Err != "" {
		fmt.Printf("last error: %s\n", st.Err)
	}
}
