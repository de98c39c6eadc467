// Command chatline is a terminal chat client. It logs in, keeps the local
// chat and message state synchronized over the push channel, and exposes a
// small line-based prompt for chatting.
package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/vkazakov/chatline/internal/api"
	"github.com/vkazakov/chatline/internal/config"
	"github.com/vkazakov/chatline/internal/model/chat"
	"github.com/vkazakov/chatline/internal/session"
)

var (
	flagTag       string
	flagPassword  string
	flagSignUp    bool
	flagFirstName string
	flagSurname   string
	flagBio       string
)

var rootCmd = &cobra.Command{
	Use:   "chatline",
	Short: "Terminal chat client with live push synchronization",
	RunE:  run,
}

func init() {
	rootCmd.Flags().StringVar(&flagTag, "tag", "", "account tag (prompted when omitted)")
	rootCmd.Flags().StringVar(&flagPassword, "password", "", "account password (prompted when omitted)")
	rootCmd.Flags().BoolVar(&flagSignUp, "signup", false, "register a new account instead of logging in")
	rootCmd.Flags().StringVar(&flagFirstName, "first-name", "", "first name, sign-up only")
	rootCmd.Flags().StringVar(&flagSurname, "surname", "", "surname, sign-up only")
	rootCmd.Flags().StringVar(&flagBio, "bio", "", "profile bio, sign-up only")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	in := bufio.NewScanner(os.Stdin)
	tag := flagTag
	if tag == "" {
		tag = promptLine(in, "tag: ")
	}
	password := flagPassword
	if password == "" {
		password = promptLine(in, "password: ")
	}

	// Once the session terminally fails there is nothing interactive left
	// to do; drop back to the shell.
	client, err := api.New(cfg.Client.BaseURL, func() { stop() },
		api.WithRefreshGrace(cfg.Client.RefreshGrace))
	if err != nil {
		return err
	}

	if flagSignUp {
		req := api.SignUpRequest{
			FirstName: flagFirstName,
			Surname:   flagSurname,
			Tag:       tag,
			Password:  password,
			Bio:       flagBio,
		}
		if req.FirstName == "" {
			req.FirstName = promptLine(in, "first name: ")
		}
		if req.Surname == "" {
			req.Surname = promptLine(in, "surname: ")
		}
		if err := client.SignUp(ctx, req); err != nil {
			return fmt.Errorf("sign up: %w", err)
		}
	} else if err := client.Login(ctx, tag, password); err != nil {
		return fmt.Errorf("login: %w", err)
	}

	sess := session.New(client, cfg.Client.WSURL)
	if err := sess.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.Close()

	if me := sess.User.Current(); me != nil {
		fmt.Printf("logged in as %s %s (@%s)\n", me.FirstName, me.Surname, me.Tag)
	}
	fmt.Println(`type "help" for commands`)

	repl(ctx, in, sess)
	return nil
}

func repl(ctx context.Context, in *bufio.Scanner, sess *session.Session) {
	for {
		fmt.Print("> ")
		if !in.Scan() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		fields := strings.Fields(in.Text())
		if len(fields) == 0 {
			continue
		}
		if err := dispatch(ctx, sess, fields[0], fields[1:]); err != nil {
			if err == errQuit {
				return
			}
			fmt.Printf("error: %v\n", err)
		}
	}
}

var errQuit = fmt.Errorf("quit")

func dispatch(ctx context.Context, sess *session.Session, cmd string, args []string) error {
	switch cmd {
	case "help":
		printHelp()
		return nil
	case "quit", "exit":
		return errQuit
	case "chats":
		return showChats(sess)
	case "chat":
		if len(args) != 1 {
			return fmt.Errorf("usage: chat <tag>")
		}
		return sess.Chats.Create(ctx, args[0])
	case "delchat":
		id, err := parseID(args, 0, "chat id")
		if err != nil {
			return err
		}
		return sess.Chats.Delete(ctx, id)
	case "open":
		id, err := parseID(args, 0, "chat id")
		if err != nil {
			return err
		}
		sess.Chats.Select(id)
		return sess.Messages.Load(ctx, id)
	case "msgs":
		return showMessages(sess)
	case "send":
		id, ok := sess.Chats.Selected()
		if !ok {
			return fmt.Errorf("no chat open")
		}
		if len(args) == 0 {
			return fmt.Errorf("usage: send <text>")
		}
		return sess.Messages.Send(ctx, id, strings.Join(args, " "))
	case "edit":
		id, ok := sess.Chats.Selected()
		if !ok {
			return fmt.Errorf("no chat open")
		}
		msgID, err := parseID(args, 0, "message id")
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return fmt.Errorf("usage: edit <message id> <text>")
		}
		return sess.Messages.Edit(ctx, id, msgID, strings.Join(args[1:], " "))
	case "rm":
		id, ok := sess.Chats.Selected()
		if !ok {
			return fmt.Errorf("no chat open")
		}
		msgID, err := parseID(args, 0, "message id")
		if err != nil {
			return err
		}
		return sess.Messages.Delete(ctx, id, msgID)
	case "react":
		msgID, err := parseID(args, 0, "message id")
		if err != nil {
			return err
		}
		if len(args) < 2 {
			return fmt.Errorf("usage: react <message id> <like|laugh|sad|heart|embarrassed>")
		}
		rt := chat.ReactionType(args[1])
		if !rt.Valid() {
			return fmt.Errorf("unknown reaction type %q", args[1])
		}
		return sess.Messages.AddReaction(ctx, msgID, rt)
	case "unreact":
		msgID, err := parseID(args, 0, "message id")
		if err != nil {
			return err
		}
		reactionID, err := parseID(args, 1, "reaction id")
		if err != nil {
			return err
		}
		return sess.Messages.RemoveReaction(ctx, msgID, reactionID)
	case "whoami":
		me := sess.User.Current()
		if me == nil {
			return fmt.Errorf("profile not loaded")
		}
		fmt.Printf("%s %s (@%s) id=%d\n%s\n", me.FirstName, me.Surname, me.Tag, me.UserID, me.Bio)
		return nil
	case "notices":
		for _, n := range sess.Notifications.Items() {
			fmt.Printf("[%s] %s\n", n.Severity, n.Message)
		}
		return nil
	case "logout":
		if err := sess.User.Logout(ctx); err != nil {
			return err
		}
		return errQuit
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func showChats(sess *session.Session) error {
	chats := sess.Chats.Chats()
	if len(chats) == 0 {
		fmt.Println("no chats yet")
		return nil
	}
	selected, _ := sess.Chats.Selected()
	for _, c := range chats {
		marker := " "
		if c.ConversationID == selected {
			marker = "*"
		}
		title := ""
		if c.Title != nil {
			title = *c.Title
		}
		fmt.Printf("%s %4d  %-24s %s\n", marker, c.ConversationID, title, c.LastMessage)
	}
	return nil
}

func showMessages(sess *session.Session) error {
	if _, ok := sess.Chats.Selected(); !ok {
		return fmt.Errorf("no chat open")
	}
	for _, m := range sess.Messages.Messages() {
		edited := ""
		if m.IsEdited {
			edited = " (edited)"
		}
		var reactions strings.Builder
		for _, r := range m.Reactions {
			reactions.WriteString(" " + r.ReactionType.Emoji())
		}
		fmt.Printf("%4d  [user %d] %s%s%s\n", m.MessageID, m.UserID, m.Text, edited, reactions.String())
	}
	return nil
}

func printHelp() {
	fmt.Print(`chats                      list conversations
chat <tag>                 start a conversation with @tag
delchat <id>               delete a conversation
open <id>                  open a conversation and load its messages
msgs                       show messages of the open conversation
send <text>                send a message
edit <message id> <text>   edit one of your messages
rm <message id>            delete one of your messages
react <message id> <type>  add a reaction (like laugh sad heart embarrassed)
unreact <msg id> <rct id>  remove a reaction
whoami                     show your profile
notices                    show pending notifications
logout                     log out and quit
quit                       quit without logging out
`)
}

func promptLine(in *bufio.Scanner, prompt string) string {
	fmt.Print(prompt)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func parseID(args []string, i int, what string) (int64, error) {
	if len(args) <= i {
		return 0, fmt.Errorf("missing %s", what)
	}
	id, err := strconv.ParseInt(args[i], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", what, args[i])
	}
	return id, nil
}
