package dtls

import (
	"context"
	"crypto/x509"
	"fmt"
)

// flight4Parse implements Flight-4 Parse: the server's
// second-round receive path. Phase A correlates Certificate/
// ClientKeyExchange/CertificateVerify and authenticates the client;
// Phase B derives the master secret and keys the cipher (idempotently);
// Phase C waits for the client's Finished at initial_epoch+1; Phase D
// enforces the configured client-auth policy. Grounded directly on
// original_source/dtls/src/flight/flight4.rs, translated into this
// package's Go idiom (sentinel errors compared with errors.Is, flightVal
// returns instead of a boxed Flight trait object).
func flight4Parse(ctx context.Context, conn flightConn, state *State, cache *handshakeCache, cfg *HandshakeConfig) (flightVal, *Alert, error) {
	seq, msgs, ok := cache.fullPullMap(state.HandshakeRecvSequence,
		handshakeCachePullRule{HandshakeTypeCertificate, cfg.InitialEpoch, true, true},
		handshakeCachePullRule{HandshakeTypeClientKeyExchange, cfg.InitialEpoch, true, false},
		handshakeCachePullRule{HandshakeTypeCertificateVerify, cfg.InitialEpoch, true, true},
	)
	if !ok {
		return 0, nil, nil
	}

	clientKeyExchange, ok := msgs[HandshakeTypeClientKeyExchange].(*HandshakeMessageClientKeyExchange)
	if !ok {
		return 0, fatal(AlertDescriptionInternalError), ErrHandshakeMessageUnexpectedType
	}

	// fullPullMap's generic decode always takes the ECDHE shape; re-decode
	// from the raw bytes when the negotiated suite is PSK, per the ambiguity
	// documented on HandshakeMessageClientKeyExchange.Unmarshal.
	if state.CipherSuite != nil && state.CipherSuite.IsPSK() {
		if raw, present := cache.raw(handshakeCachePullRule{HandshakeTypeClientKeyExchange, cfg.InitialEpoch, true, false}); present {
			if _, err := clientKeyExchange.unmarshalPSK(raw); err != nil {
				return 0, fatal(AlertDescriptionDecodeError), err
			}
		}
	}

	if certMsg, present := msgs[HandshakeTypeCertificate]; present {
		h, ok := certMsg.(*HandshakeMessageCertificate)
		if !ok {
			return 0, fatal(AlertDescriptionInternalError), ErrHandshakeMessageUnexpectedType
		}
		state.PeerCertificates = h.Certificate
	}

	if cvMsg, present := msgs[HandshakeTypeCertificateVerify]; present {
		h, ok := cvMsg.(*HandshakeMessageCertificateVerify)
		if !ok {
			return 0, fatal(AlertDescriptionInternalError), ErrHandshakeMessageUnexpectedType
		}

		if len(state.PeerCertificates) == 0 {
			return 0, fatal(AlertDescriptionNoCertificate), ErrCertificateVerifyNoCertificate
		}

		transcript, err := cache.pullAndMerge(
			handshakeCachePullRule{HandshakeTypeClientHello, cfg.InitialEpoch, true, false},
			handshakeCachePullRule{HandshakeTypeServerHello, cfg.InitialEpoch, false, false},
			handshakeCachePullRule{HandshakeTypeCertificate, cfg.InitialEpoch, false, false},
			handshakeCachePullRule{HandshakeTypeServerKeyExchange, cfg.InitialEpoch, false, false},
			handshakeCachePullRule{HandshakeTypeCertificateRequest, cfg.InitialEpoch, false, false},
			handshakeCachePullRule{HandshakeTypeServerHelloDone, cfg.InitialEpoch, false, false},
			handshakeCachePullRule{HandshakeTypeCertificate, cfg.InitialEpoch, true, false},
			handshakeCachePullRule{HandshakeTypeClientKeyExchange, cfg.InitialEpoch, true, false},
		)
		if err != nil {
			return 0, fatal(AlertDescriptionInternalError), err
		}

		validScheme := false
		for _, ss := range cfg.LocalSignatureSchemes {
			if ss.Hash == h.HashAlgorithm && ss.Signature == h.SignatureAlgorithm {
				validScheme = true
				break
			}
		}
		if !validScheme {
			return 0, fatal(AlertDescriptionInsufficientSecurity), ErrNoAvailableSignatureSchemes
		}

		if err := verifyCertificateVerify(transcript, h.HashAlgorithm, h.Signature, state.PeerCertificates); err != nil {
			return 0, fatal(AlertDescriptionBadCertificate), err
		}

		var chains [][]*x509.Certificate
		if cfg.ClientAuth >= VerifyClientCertIfGiven {
			c, err := verifyClientCert(state.PeerCertificates, cfg.ClientCAs)
			if err != nil {
				return 0, fatal(AlertDescriptionBadCertificate), err
			}
			chains = c
			state.PeerCertificatesVerified = true
		}
		if cfg.VerifyPeerCertificate != nil {
			if err := cfg.VerifyPeerCertificate(state.PeerCertificates[0], chains); err != nil {
				return 0, fatal(AlertDescriptionBadCertificate), err
			}
		}
	}

	if state.CipherSuite != nil && !state.IsCipherSuiteInitialized() {
		serverRandom := state.LocalRandom.Marshal()
		clientRandom := state.RemoteRandom.Marshal()

		var preMasterSecret []byte
		switch {
		case cfg.LocalPSKCallback != nil:
			psk, err := cfg.LocalPSKCallback(clientKeyExchange.IdentityHint)
			if err != nil {
				return 0, fatal(AlertDescriptionInternalError), fmt.Errorf("%w: %v", ErrPSKCallbackFailed, err)
			}
			preMasterSecret = pskPreMasterSecret(psk)
		case state.LocalKeypair != nil:
			pms, err := PreMasterSecretFromKeypair(clientKeyExchange.PublicKey, state.LocalKeypair.PrivateKey, state.LocalKeypair.Curve)
			if err != nil {
				return 0, fatal(AlertDescriptionIllegalParameter), err
			}
			preMasterSecret = pms
		}

		hashFunc := state.CipherSuite.HashFunc()
		if state.ExtendedMasterSecret {
			sessionHash, err := cache.sessionHash(hashFunc, cfg.InitialEpoch)
			if err != nil {
				return 0, fatal(AlertDescriptionInternalError), err
			}
			state.MasterSecret = extendedMasterSecret(preMasterSecret, sessionHash, hashFunc)
		} else {
			state.MasterSecret = masterSecret(preMasterSecret, clientRandom, serverRandom, hashFunc)
		}

		if err := state.CipherSuite.Init(state.MasterSecret, clientRandom, serverRandom, false); err != nil {
			return 0, fatal(AlertDescriptionInternalError), err
		}
	}

	// Cipher is keyed: records at initial_epoch+1 that arrived before the
	// keys existed can now be decrypted and re-fed into the cache.
	if err := conn.handleQueuedPackets(ctx); err != nil {
		return 0, fatal(AlertDescriptionInternalError), err
	}

	finSeq, finMsgs, ok := cache.fullPullMap(seq,
		handshakeCachePullRule{HandshakeTypeFinished, cfg.InitialEpoch + 1, true, false},
	)
	if !ok {
		return 0, nil, nil
	}
	state.HandshakeRecvSequence = finSeq
	if _, present := finMsgs[HandshakeTypeFinished]; !present {
		return 0, fatal(AlertDescriptionInternalError), ErrHandshakeMessageUnexpectedType
	}

	switch cfg.ClientAuth {
	case RequireAnyClientCert:
		if len(state.PeerCertificates) == 0 {
			return 0, fatal(AlertDescriptionNoCertificate), ErrClientCertificateRequired
		}
	case VerifyClientCertIfGiven:
		if len(state.PeerCertificates) != 0 && !state.PeerCertificatesVerified {
			return 0, fatal(AlertDescriptionBadCertificate), ErrClientCertificateNotVerified
		}
	case RequireAndVerifyClientCert:
		if len(state.PeerCertificates) == 0 {
			return 0, fatal(AlertDescriptionNoCertificate), ErrClientCertificateRequired
		}
		if !state.PeerCertificatesVerified {
			return 0, fatal(AlertDescriptionBadCertificate), ErrClientCertificateNotVerified
		}
	}

	return flight6, nil, nil
}

// flight4Generate builds ServerHello, then either the
// non-PSK certificate branch (Certificate, ServerKeyExchange,
// CertificateRequest) or the PSK identity-hint branch, then
// ServerHelloDone. Every packet is unencrypted (should_encrypt=false);
// ChangeCipherSpec and encryption are Flight6's concern.
func flight4Generate(_ flightConn, state *State, _ *handshakeCache, cfg *HandshakeConfig) ([]*Packet, *Alert, error) {
	var extensions []Extension
	if (cfg.ExtendedMasterSecret == ExtendedMasterSecretRequest || cfg.ExtendedMasterSecret == ExtendedMasterSecretRequire) && state.ExtendedMasterSecret {
		extensions = append(extensions, &ExtensionUseExtendedMasterSecret{})
	}
	if state.SRTPProtectionProfile != SRTPProtectionProfileUnsupported {
		extensions = append(extensions, &ExtensionUseSRTP{ProtectionProfile: state.SRTPProtectionProfile})
	}
	if cfg.LocalPSKCallback == nil {
		extensions = append(extensions,
			&ExtensionSupportedEllipticCurves{Curves: []NamedCurve{NamedCurveX25519, NamedCurveP256, NamedCurveP384}},
			&ExtensionSupportedPointFormats{PointFormats: []uint8{ellipticCurvePointFormatUncompressed}},
		)
	}

	cipherSuiteID := CipherSuiteUnsupported
	if state.CipherSuite != nil {
		cipherSuiteID = state.CipherSuite.ID()
	}

	header := RecordLayerHeader{ContentType: ContentTypeHandshake, ProtocolVersion: ProtocolVersion1_2, Epoch: cfg.InitialEpoch}

	pkts := []*Packet{
		{
			Header: header,
			Content: &HandshakeMessageServerHello{
				Version:           ProtocolVersion1_2,
				Random:            state.LocalRandom,
				CipherSuite:       cipherSuiteID,
				CompressionMethod: 0,
				Extensions:        extensions,
			},
		},
	}

	switch {
	case cfg.LocalPSKCallback == nil:
		cert, err := cfg.GetCertificate(cfg.ServerName)
		if err != nil {
			return nil, fatal(AlertDescriptionHandshakeFailure), err
		}

		pkts = append(pkts, &Packet{
			Header:  header,
			Content: &HandshakeMessageCertificate{Certificate: cert.Certificate},
		})

		if state.LocalKeypair != nil {
			serverRandom := state.LocalRandom.Marshal()
			clientRandom := state.RemoteRandom.Marshal()

			signatureScheme, err := selectSignatureScheme(cfg.LocalSignatureSchemes, cert)
			if err != nil {
				return nil, fatal(AlertDescriptionInsufficientSecurity), err
			}

			signature, err := generateKeySignature(clientRandom, serverRandom, state.LocalKeypair.PublicKey, state.NamedCurve, cert.PrivateKey, signatureScheme.Hash)
			if err != nil {
				return nil, fatal(AlertDescriptionInternalError), err
			}
			state.LocalKeySignature = signature

			pkts = append(pkts, &Packet{
				Header: header,
				Content: &HandshakeMessageServerKeyExchange{
					EllipticCurveType:  3, // named_curve, RFC 4492 §5.4
					NamedCurve:         state.NamedCurve,
					PublicKey:          state.LocalKeypair.PublicKey,
					HashAlgorithm:      signatureScheme.Hash,
					SignatureAlgorithm: signatureScheme.Signature,
					Signature:          state.LocalKeySignature,
				},
			})
		}

		if cfg.ClientAuth > NoClientCert {
			pkts = append(pkts, &Packet{
				Header: header,
				Content: &HandshakeMessageCertificateRequest{
					CertificateTypes:        []ClientCertificateType{ClientCertificateTypeRSASign, ClientCertificateTypeECDSASign},
					SignatureHashAlgorithms: cfg.LocalSignatureSchemes,
				},
			})
		}

	case len(cfg.LocalPSKIdentityHint) > 0:
		// RFC 4279 §2: the hint-only ServerKeyExchange is omitted entirely
		// when the hint is empty, not sent with a zero-length hint.
		pkts = append(pkts, &Packet{
			Header:  header,
			Content: &HandshakeMessageServerKeyExchange{IdentityHint: cfg.LocalPSKIdentityHint},
		})
	}

	pkts = append(pkts, &Packet{
		Header:  header,
		Content: &HandshakeMessageServerHelloDone{},
	})

	return pkts, nil, nil
}
