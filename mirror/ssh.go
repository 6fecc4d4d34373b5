package mirror

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/user"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

const (
	defaultSSHPort = "22"
	dialTimeout    = 30 * time.Second
)

// SSHDialer opens scp sessions over SSH
type SSHDialer struct {
	Host       string // host[:port]
	User       string // defaults to the invoking user
	KeyFile    string // defaults to ~/.ssh/id_rsa
	KnownHosts string // defaults to ~/.ssh/known_hosts
}

// Address returns host:port, adding the default SSH port when missing
func Address(host string) string {
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	return net.JoinHostPort(strings.Trim(host, "[]"), defaultSSHPort)
}

// Dial connects and authenticates; agent keys are tried before the key file
func (d *SSHDialer) Dial(ctx context.Context) (Session, error) {
	home, _ := os.UserHomeDir()

	auth, closeAgent := d.authMethods(home)
	hostKeys, err := d.hostKeyCallback(home)
	if err != nil {
		closeAgent()
		return nil, err
	}

	config := &ssh.ClientConfig{
		User:            d.loginUser(),
		Auth:            auth,
		HostKeyCallback: hostKeys,
		Timeout:         dialTimeout,
	}

	addr := Address(d.Host)
	nd := net.Dialer{Timeout: dialTimeout}
	conn, err := nd.DialContext(ctx, "tcp", addr)
	if err != nil {
		closeAgent()
		return nil, err
	}
	c, chans, reqs, err := ssh.NewClientConn(conn, addr, config)
	// agent signers are only needed during the handshake
	closeAgent()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", addr, err)
	}

	return &sshSession{client: ssh.NewClient(c, chans, reqs)}, nil
}

// authMethods offers agent keys and then the key file under one publickey
// method; the client never retries a method name once it has failed.
func (d *SSHDialer) authMethods(home string) ([]ssh.AuthMethod, func()) {
	var agentSigners func() ([]ssh.Signer, error)
	closeAgent := func() {}

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			agentSigners = agent.NewClient(conn).Signers
			closeAgent = func() { conn.Close() }
		} else {
			log.Debug().Err(err).Msg("SSH agent unavailable")
		}
	}

	keyFile := d.KeyFile
	if keyFile == "" {
		keyFile = filepath.Join(home, ".ssh", "id_rsa")
	}
	var keySigner ssh.Signer
	if raw, err := os.ReadFile(keyFile); err == nil {
		if signer, err := ssh.ParsePrivateKey(raw); err == nil {
			keySigner = signer
		} else {
			log.Warn().Err(err).Str("key_file", keyFile).Msg("Unable to use SSH key")
		}
	}

	if agentSigners == nil && keySigner == nil {
		return nil, closeAgent
	}

	signers := func() ([]ssh.Signer, error) {
		var out []ssh.Signer
		if agentSigners != nil {
			if s, err := agentSigners(); err == nil {
				out = append(out, s...)
			} else {
				log.Warn().Err(err).Msg("Unable to list SSH agent keys")
			}
		}
		if keySigner != nil {
			out = append(out, keySigner)
		}
		return out, nil
	}
	return []ssh.AuthMethod{ssh.PublicKeysCallback(signers)}, closeAgent
}

// loginUser is the configured login or the invoking user
func (d *SSHDialer) loginUser() string {
	if d.User != "" {
		return d.User
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return os.Getenv("USER")
}

func (d *SSHDialer) hostKeyCallback(home string) (ssh.HostKeyCallback, error) {
	file := d.KnownHosts
	if file == "" {
		file = filepath.Join(home, ".ssh", "known_hosts")
	}
	if _, err := os.Stat(file); err != nil {
		log.Warn().Str("known_hosts", file).Msg("No known_hosts file, host key not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	cb, err := knownhosts.New(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load known hosts: %w", err)
	}
	return cb, nil
}

// sshSession bundles the transport and the authenticated client;
// closing the client closes the connection
type sshSession struct {
	client *ssh.Client
}

func (s *sshSession) Close() error {
	return s.client.Close()
}

// Copy sends one file with the scp sink protocol on a new channel
func (s *sshSession) Copy(ctx context.Context, remotePath string, mode os.FileMode, r io.Reader, size int64) (int64, error) {
	session, err := s.client.NewSession()
	if err != nil {
		return 0, err
	}
	defer session.Close()

	stop := context.AfterFunc(ctx, func() { session.Close() })
	defer stop()

	w, err := session.StdinPipe()
	if err != nil {
		return 0, err
	}
	stdout, err := session.StdoutPipe()
	if err != nil {
		return 0, err
	}
	if err := session.Start("scp -qt " + shellQuote(path.Dir(remotePath))); err != nil {
		return 0, err
	}

	return scpSend(w, bufio.NewReader(stdout), path.Base(remotePath), mode, r, size, session.Wait)
}

// scpSend speaks the sink side of the scp protocol: wait for the remote to
// be ready, send the file header, the content and a terminating zero byte,
// checking the response after each step. A short read from r abandons the
// channel and reports the bytes actually sent.
func scpSend(w io.WriteCloser, resp *bufio.Reader, name string, mode os.FileMode, r io.Reader, size int64, wait func() error) (int64, error) {
	if err := checkRemoteResponse(resp); err != nil {
		return 0, fmt.Errorf("scp not ready: %w", err)
	}

	if _, err := fmt.Fprintf(w, "C%04o %d %s\n", mode.Perm(), size, name); err != nil {
		return 0, err
	}
	if err := checkRemoteResponse(resp); err != nil {
		return 0, fmt.Errorf("scp rejected header: %w", err)
	}

	n, err := io.CopyN(w, r, size)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		return n, err
	}

	if _, err := w.Write([]byte{0}); err != nil {
		return n, err
	}
	if err := checkRemoteResponse(resp); err != nil {
		return n, fmt.Errorf("scp rejected content: %w", err)
	}

	w.Close()
	if err := wait(); err != nil {
		return n, err
	}
	return n, nil
}

// checkRemoteResponse reads one scp status: 0 is ok, 1 and 2 carry a message
func checkRemoteResponse(r *bufio.Reader) error {
	typ, err := r.ReadByte()
	if err != nil {
		return err
	}
	if typ == 0 {
		return nil
	}
	message, err := r.ReadString('\n')
	if err != nil {
		return err
	}
	return errors.New(strings.TrimSpace(message))
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
