package mirror

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"errors"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// sshServer accepts one authorized public key and rejects every channel
type sshServer struct {
	addr    string
	hostKey ssh.Signer
	users   chan string
}

func newSSHServer(t *testing.T, authorized ssh.PublicKey) *sshServer {
	t.Helper()
	_, hostPriv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	hostKey, err := ssh.NewSignerFromKey(hostPriv)
	require.NoError(t, err)

	config := &ssh.ServerConfig{
		PublicKeyCallback: func(_ ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
			if bytes.Equal(key.Marshal(), authorized.Marshal()) {
				return nil, nil
			}
			return nil, errors.New("unauthorized key")
		},
	}
	config.AddHostKey(hostKey)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	srv := &sshServer{addr: ln.Addr().String(), hostKey: hostKey, users: make(chan string, 8)}
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.serve(c, config)
		}
	}()
	return srv
}

func (s *sshServer) serve(c net.Conn, config *ssh.ServerConfig) {
	conn, chans, reqs, err := ssh.NewServerConn(c, config)
	if err != nil {
		c.Close()
		return
	}
	defer conn.Close()
	select {
	case s.users <- conn.User():
	default:
	}
	go ssh.DiscardRequests(reqs)
	for ch := range chans {
		ch.Reject(ssh.Prohibited, "no channels")
	}
}

func newKey(t *testing.T) (ed25519.PrivateKey, ssh.PublicKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return priv, sshPub
}

func writeKeyFile(t *testing.T, path string, priv ed25519.PrivateKey) {
	t.Helper()
	block, err := ssh.MarshalPrivateKey(priv, "")
	require.NoError(t, err)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, pem.EncodeToMemory(block), 0600))
}

// serveAgent runs an in-process agent holding keys on SSH_AUTH_SOCK
func serveAgent(t *testing.T, keys ...ed25519.PrivateKey) {
	t.Helper()
	keyring := agent.NewKeyring()
	for _, k := range keys {
		require.NoError(t, keyring.Add(agent.AddedKey{PrivateKey: k}))
	}

	// unix socket paths are length limited, keep it short
	dir, err := os.MkdirTemp("", "hb-agent")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	sock := filepath.Join(dir, "agent.sock")

	ln, err := net.Listen("unix", sock)
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer c.Close()
				agent.ServeAgent(keyring, c)
			}()
		}
	}()
	t.Setenv("SSH_AUTH_SOCK", sock)
}

// isolateHome points the default key and known_hosts paths at an empty dir
func isolateHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("SSH_AUTH_SOCK", "")
	return home
}

func dial(t *testing.T, d *SSHDialer) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	sess, err := d.Dial(ctx)
	if err != nil {
		return err
	}
	return sess.Close()
}

func TestSSHDialer_AgentKey(t *testing.T) {
	home := isolateHome(t)
	priv, pub := newKey(t)
	srv := newSSHServer(t, pub)
	serveAgent(t, priv)

	err := dial(t, &SSHDialer{Host: srv.addr, User: "iris", KeyFile: filepath.Join(home, "missing")})
	require.NoError(t, err)
	assert.Equal(t, "iris", <-srv.users)
}

func TestSSHDialer_FallsBackToKeyFile(t *testing.T) {
	tests := []struct {
		name       string
		agentHolds bool
	}{
		{"empty agent", false},
		{"agent key rejected", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			home := isolateHome(t)
			priv, pub := newKey(t)
			srv := newSSHServer(t, pub)

			if tt.agentHolds {
				other, _ := newKey(t)
				serveAgent(t, other)
			} else {
				serveAgent(t)
			}
			keyFile := filepath.Join(home, "mirror_key")
			writeKeyFile(t, keyFile, priv)

			err := dial(t, &SSHDialer{Host: srv.addr, User: "iris", KeyFile: keyFile})
			assert.NoError(t, err)
		})
	}
}

func TestSSHDialer_DefaultKeyFile(t *testing.T) {
	home := isolateHome(t)
	priv, pub := newKey(t)
	srv := newSSHServer(t, pub)
	writeKeyFile(t, filepath.Join(home, ".ssh", "id_rsa"), priv)

	assert.NoError(t, dial(t, &SSHDialer{Host: srv.addr, User: "iris"}))
}

func TestSSHDialer_NoUsableCredentials(t *testing.T) {
	isolateHome(t)
	_, pub := newKey(t)
	srv := newSSHServer(t, pub)

	err := dial(t, &SSHDialer{Host: srv.addr, User: "iris"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to authenticate")

	other, _ := newKey(t)
	serveAgent(t, other)
	err = dial(t, &SSHDialer{Host: srv.addr, User: "iris"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to authenticate")
}

func TestSSHDialer_KnownHosts(t *testing.T) {
	home := isolateHome(t)
	priv, pub := newKey(t)
	srv := newSSHServer(t, pub)
	keyFile := filepath.Join(home, "mirror_key")
	writeKeyFile(t, keyFile, priv)

	known := filepath.Join(home, "known_hosts")
	line := knownhosts.Line([]string{knownhosts.Normalize(srv.addr)}, srv.hostKey.PublicKey())
	require.NoError(t, os.WriteFile(known, []byte(line+"\n"), 0600))
	assert.NoError(t, dial(t, &SSHDialer{Host: srv.addr, User: "iris", KeyFile: keyFile, KnownHosts: known}))

	_, otherHost := newKey(t)
	line = knownhosts.Line([]string{knownhosts.Normalize(srv.addr)}, otherHost)
	require.NoError(t, os.WriteFile(known, []byte(line+"\n"), 0600))
	err := dial(t, &SSHDialer{Host: srv.addr, User: "iris", KeyFile: keyFile, KnownHosts: known})
	assert.Error(t, err, "a changed host key must be refused")

	// no known_hosts file accepts the host
	err = dial(t, &SSHDialer{Host: srv.addr, User: "iris", KeyFile: keyFile, KnownHosts: filepath.Join(home, "none")})
	assert.NoError(t, err)
}

func TestSSHDialer_DefaultUser(t *testing.T) {
	home := isolateHome(t)
	priv, pub := newKey(t)
	srv := newSSHServer(t, pub)
	writeKeyFile(t, filepath.Join(home, ".ssh", "id_rsa"), priv)
	t.Setenv("USER", "")

	d := &SSHDialer{Host: srv.addr}
	require.NoError(t, dial(t, d))

	got := <-srv.users
	assert.NotEmpty(t, got)
	assert.Equal(t, d.loginUser(), got)
}
